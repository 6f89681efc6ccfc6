// File: session/subscriber.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Demand-pull event subscription: a subscriber's outstanding Request(n)
// is the only thing that lets a queued event through to OnNext. Queued
// events never drop; a slow or silent subscriber just builds backlog.

package session

import (
	"sync"

	"github.com/eapache/queue"

	"github.com/momentics/fixp-ws-client/api"
)

// subscription bridges Session's event publication to one
// api.EventSubscriber. It owns a private goroutine that blocks on its
// condition variable until both a queued event and outstanding demand
// exist.
type subscription struct {
	mu        sync.Mutex
	cond      *sync.Cond
	events    *queue.Queue
	demand    int64
	cancelled bool
	sub       api.EventSubscriber
}

func newSubscription(sub api.EventSubscriber) *subscription {
	s := &subscription{events: queue.New(), sub: sub}
	s.cond = sync.NewCond(&s.mu)
	sub.OnSubscribe(s)
	go s.loop()
	return s
}

// Request implements api.Subscription.
func (s *subscription) Request(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	s.demand += int64(n)
	s.cond.Broadcast()
	s.mu.Unlock()
}

// Cancel implements api.Subscription. Idempotent.
func (s *subscription) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// publish enqueues an event for delivery; never blocks the caller and
// never drops.
func (s *subscription) publish(ev api.SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled {
		return
	}
	s.events.Add(ev)
	s.cond.Broadcast()
}

func (s *subscription) loop() {
	for {
		s.mu.Lock()
		for !s.cancelled && (s.demand == 0 || s.events.Length() == 0) {
			s.cond.Wait()
		}
		if s.cancelled {
			s.mu.Unlock()
			return
		}
		ev := s.events.Peek().(api.SessionEvent)
		s.events.Remove()
		s.demand--
		s.mu.Unlock()

		s.sub.OnNext(ev)
	}
}
