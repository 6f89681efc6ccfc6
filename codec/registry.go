// File: codec/registry.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package codec

import (
	"sync"

	"github.com/momentics/fixp-ws-client/api"
)

// ProviderFactory constructs a fresh api.Provider instance. Providers
// call Register from their own init(), mirroring database/sql-style
// discovery without reflection or plugin loading.
type ProviderFactory func() api.Provider

var (
	mu        sync.RWMutex
	factories = make(map[string]ProviderFactory)
)

// Register binds name to factory. Called from a provider package's
// init(); a duplicate name overwrites the earlier registration, which
// only matters to tests that register fakes under a provider's name.
func Register(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Lookup constructs the provider registered under name, or fails with
// api.ErrNoSuchProvider.
func Lookup(name string) (api.Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, api.ErrNoSuchProvider
	}
	return factory(), nil
}

// Names returns every currently registered provider name, for
// diagnostics.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	return names
}
