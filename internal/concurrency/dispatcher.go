// File: internal/concurrency/dispatcher.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Dispatcher decouples the transport's read loop from session
// processing (§4.2, §5.1). Generalized from the teacher's EventLoop
// (internal/concurrency/eventloop.go in momentics/hioload-ws): same
// ring-backed, single-worker run loop with adaptive spin backoff, but
// Submit never drops a frame on a full ring — it spins instead, since
// losing an inbound frame here would desynchronize the session's
// sequence numbering.

package concurrency

import (
	"log"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/momentics/fixp-ws-client/affinity"
)

// Frame is one inbound wire frame handed from the transport's read
// loop to the dispatcher's worker goroutine.
type Frame struct {
	SourceID string
	Region   []byte
}

// FrameHandler processes dispatched frames. HandleFrame is only ever
// called from the dispatcher's single worker goroutine, never
// concurrently with itself.
type FrameHandler interface {
	HandleFrame(f Frame)
}

// Dispatcher is a single-producer/single-consumer pipeline: Submit is
// called from the transport's read goroutine, the worker goroutine
// drains the ring and invokes the handler.
type Dispatcher struct {
	ring    *RingBuffer[Frame]
	handler FrameHandler
	quit     chan struct{}
	stopped  chan struct{}
	started  int32
	stopOnce sync.Once
	pinCPU   int
}

// NewDispatcher constructs a dispatcher backed by a ring of at least
// capacity slots (rounded up to a power of two).
func NewDispatcher(capacity int, h FrameHandler) *Dispatcher {
	return &Dispatcher{
		ring:    NewRingBuffer[Frame](roundPow2(capacity)),
		handler: h,
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
		pinCPU:  -1,
	}
}

// SetCPUPin requests that the worker goroutine's OS thread be pinned
// to cpu once Start runs. Must be called before Start; a negative
// value (the default) disables pinning.
func (d *Dispatcher) SetCPUPin(cpu int) {
	d.pinCPU = cpu
}

func roundPow2(n int) uint64 {
	size := uint64(1)
	for size < uint64(n) {
		size <<= 1
	}
	return size
}

// Start launches the worker goroutine. Calling Start more than once is
// a no-op.
func (d *Dispatcher) Start() {
	if !atomic.CompareAndSwapInt32(&d.started, 0, 1) {
		return
	}
	go d.run()
}

func (d *Dispatcher) run() {
	defer close(d.stopped)
	if d.pinCPU >= 0 {
		runtime.LockOSThread()
		if err := affinity.SetAffinity(d.pinCPU); err != nil {
			log.Printf("dispatcher: cpu pin to %d failed: %v", d.pinCPU, err)
		}
	}
	for {
		f, ok := d.ring.Dequeue()
		if ok {
			d.handler.HandleFrame(f)
			continue
		}
		select {
		case <-d.quit:
			// drain whatever arrived between the last empty Dequeue and quit.
			for {
				f, ok := d.ring.Dequeue()
				if !ok {
					return
				}
				d.handler.HandleFrame(f)
			}
		default:
			runtime.Gosched()
		}
	}
}

// Submit enqueues a frame, spinning until a ring slot frees. The
// transport's read loop is the sole caller; this is back-pressure on
// the socket read, not a drop point.
func (d *Dispatcher) Submit(f Frame) {
	for !d.ring.Enqueue(f) {
		runtime.Gosched()
	}
}

// Stop signals the worker to drain remaining frames and exit, then
// waits for it to do so. Idempotent: a second Stop (e.g. from a
// caller that retries teardown after a failed Open, or from a
// double Close) is a no-op rather than a close-of-closed-channel
// panic.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.quit)
		<-d.stopped
	})
}

// Pending reports the number of frames currently queued, for the
// metrics layer's queue-depth gauge.
func (d *Dispatcher) Pending() int {
	return d.ring.Len()
}
