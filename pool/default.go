// File: pool/default.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"

	"github.com/momentics/fixp-ws-client/api"
)

var (
	defaultOnce sync.Once
	defaultPool api.BufferPool
)

// DefaultPool returns a process-wide BufferPool so request builders,
// the transport, and the dispatcher all draw from the same free-lists
// instead of fragmenting allocations across one-off pools.
func DefaultPool() api.BufferPool {
	defaultOnce.Do(func() {
		defaultPool = NewBufferPool()
	})
	return defaultPool
}
