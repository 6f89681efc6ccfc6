// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake api.BufferPool, adapted from the teacher's fake/buffer.go
// (NUMA-keyed accounting pool) to this module's size-class-free
// api.Buffer: same allocated/freed/in-use counters and double-free
// detection, without the NUMA bookkeeping a single-session trading
// client has no use for.

package fake

import (
	"sync"

	"github.com/momentics/fixp-ws-client/api"
)

// BufferPool is a fake implementation of api.BufferPool that tracks
// allocation/free counts and rejects double-frees, without reusing
// backing arrays (tests care about correctness bookkeeping, not
// reuse).
type BufferPool struct {
	mu        sync.Mutex
	allocated int64
	freed     int64
	inUse     int64
	live      map[*byte]struct{}
}

// NewBufferPool constructs an empty fake pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{live: make(map[*byte]struct{})}
}

// Get implements api.BufferPool.
func (p *BufferPool) Get(size int) api.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	data := make([]byte, size)
	p.allocated++
	p.inUse++
	var key *byte
	if len(data) > 0 {
		key = &data[0]
		p.live[key] = struct{}{}
	}
	return api.Buffer{Data: data, Class: size, Pool: p}
}

// Put implements api.BufferPool. A second Put on the same region is
// detected and dropped; Stats does not count it in DoubleFree.
func (p *BufferPool) Put(b api.Buffer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var key *byte
	if len(b.Data) > 0 {
		key = &b.Data[:1][0]
	}
	if key == nil {
		return
	}
	if _, ok := p.live[key]; !ok {
		return
	}
	delete(p.live, key)
	p.freed++
	p.inUse--
}

// Stats implements api.BufferPool.
func (p *BufferPool) Stats() api.BufferPoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return api.BufferPoolStats{
		TotalAlloc: p.allocated,
		TotalFree:  p.freed,
		InUse:      p.inUse,
	}
}

var _ api.BufferPool = (*BufferPool)(nil)
