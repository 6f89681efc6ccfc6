// File: codec/sbe/provider.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Self-registering SBE codec provider (§4.3, §9): init() registers
// this provider under ProviderName, the same pattern
// control/hotreload.go uses for reload hooks, generalized to a
// name-keyed factory registry instead of an anonymous slice.

package sbe

import (
	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/codec"
)

func init() {
	codec.Register(ProviderName, func() api.Provider { return &provider{} })
}

type provider struct{}

func (provider) Name() string      { return ProviderName }
func (provider) SchemaID() uint16  { return SchemaID }

func (provider) RequestFactory(pool api.BufferPool) api.RequestFactory {
	return NewRequestFactory(pool)
}

func (provider) ResponseFactory() api.ResponseFactory {
	return NewResponseFactory()
}

func (provider) SessionMessenger() api.SessionMessenger {
	return NewSessionMessenger()
}

var _ api.Provider = (*provider)(nil)
