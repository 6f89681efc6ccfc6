// File: api/buffer.go
// Package api defines Buffer and BufferPool.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

// Buffer represents a reusable memory region drawn from a BufferPool.
// It carries no reference count; double release is caught by the pool.
// Converted to struct to avoid interface boxing.
type Buffer struct {
	Data  []byte
	Class int // size class the region was drawn from
	Pool  Releaser
}

// Releaser decouples Buffer from a concrete pool implementation.
type Releaser interface {
	Put(Buffer)
}

// Bytes returns the full byte slice backing this Buffer.
func (b Buffer) Bytes() []byte { return b.Data }

// Copy returns a copy of the buffer data.
func (b Buffer) Copy() []byte {
	dup := make([]byte, len(b.Data))
	copy(dup, b.Data)
	return dup
}

// Slice returns a new Buffer view sharing the same underlying memory.
func (b Buffer) Slice(from, to int) Buffer {
	if from < 0 || to > len(b.Data) || from > to {
		return Buffer{Class: b.Class, Pool: b.Pool}
	}
	return Buffer{
		Data:  b.Data[from:to],
		Pool:  b.Pool,
		Class: b.Class,
	}
}

// Release returns the buffer to its pool. The pool is responsible for
// guarding against double-release; Release itself may be called from
// any goroutine.
func (b Buffer) Release() {
	if b.Pool != nil {
		b.Pool.Put(b)
	}
}

// Capacity returns the capacity of the underlying slice.
func (b Buffer) Capacity() int {
	return cap(b.Data)
}

// BufferPool hands out and recycles fixed-capacity byte regions.
// Get never returns a region smaller than requested; Put is
// idempotent-safe (a second Put on an already-released Buffer is
// detected and turned into a no-op, not silent corruption).
// Implementations must serialize internally: the pool is the one
// freely-shared mutable resource in the system (§5).
type BufferPool interface {
	Get(size int) Buffer
	Put(b Buffer)
	Stats() BufferPoolStats
}

// BufferPoolStats summarizes pool usage.
type BufferPoolStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
	DoubleFree int64
}
