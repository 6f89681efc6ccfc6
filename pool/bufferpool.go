// File: pool/bufferpool.go
// Package pool
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Size-class-keyed BufferPool. Generalized from the teacher's
// NUMA-node-keyed free-list (pool/base_bufferpool.go in
// momentics/hioload-ws) to a size-class key: a single-session trading
// client has no NUMA locality concern, but the channel-backed
// free-list-per-key shape is kept verbatim.

package pool

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/momentics/fixp-ws-client/api"
)

const freeListCapacity = 1024

// classPool is a BufferPool that keys its free-lists by rounded-up
// power-of-two size class. Get never returns a region smaller than
// requested (§4.1). Put guards against double-release: a region
// already marked free is counted and dropped rather than re-queued,
// which would hand the same backing array to two callers.
type classPool struct {
	mu    sync.Mutex
	lists map[int]chan api.Buffer

	inUse  sync.Map // unsafe.Pointer(&Data[0]) -> struct{}, present while checked out
	alloc  int64
	freed  int64
	dblFree int64
}

// NewBufferPool constructs an empty size-class pool.
func NewBufferPool() api.BufferPool {
	return &classPool{lists: make(map[int]chan api.Buffer)}
}

func classFor(size int) int {
	c := 64
	for c < size {
		c <<= 1
	}
	return c
}

func (p *classPool) listFor(class int) chan api.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.lists[class]
	if !ok {
		ch = make(chan api.Buffer, freeListCapacity)
		p.lists[class] = ch
	}
	return ch
}

func regionKey(b api.Buffer) unsafe.Pointer {
	if len(b.Data) == 0 {
		return nil
	}
	return unsafe.Pointer(&b.Data[:1][0])
}

// Get acquires a region of at least size bytes, reusing a released
// region of the same size class when one is available.
func (p *classPool) Get(size int) api.Buffer {
	class := classFor(size)
	ch := p.listFor(class)
	select {
	case b := <-ch:
		b.Data = b.Data[:size]
		atomic.AddInt64(&p.alloc, 1)
		p.inUse.Store(regionKey(b), struct{}{})
		return b
	default:
	}
	b := api.Buffer{Data: make([]byte, size, class), Class: class, Pool: p}
	atomic.AddInt64(&p.alloc, 1)
	p.inUse.Store(regionKey(b), struct{}{})
	return b
}

// Put releases a region back to its size class's free-list. A second
// Put on the same region (double-free) is detected via the in-use
// marker and turned into a counted no-op.
func (p *classPool) Put(b api.Buffer) {
	key := regionKey(b)
	if key == nil {
		return
	}
	if _, wasInUse := p.inUse.LoadAndDelete(key); !wasInUse {
		atomic.AddInt64(&p.dblFree, 1)
		return
	}
	atomic.AddInt64(&p.freed, 1)
	ch := p.listFor(b.Class)
	full := b.Data[:cap(b.Data)]
	if cap(full) < b.Class {
		// undersized or foreign region: drop rather than corrupt the class list.
		return
	}
	b.Data = full[:b.Class]
	select {
	case ch <- b:
	default:
		// free-list full: let GC reclaim it.
	}
}

// Stats reports pool usage counters.
func (p *classPool) Stats() api.BufferPoolStats {
	return api.BufferPoolStats{
		TotalAlloc: atomic.LoadInt64(&p.alloc),
		TotalFree:  atomic.LoadInt64(&p.freed),
		InUse:      atomic.LoadInt64(&p.alloc) - atomic.LoadInt64(&p.freed),
		DoubleFree: atomic.LoadInt64(&p.dblFree),
	}
}
