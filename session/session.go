// File: session/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session is the five-state FIXP state machine (NOT_NEGOTIATED,
// NEGOTIATED, ESTABLISHED, FINALIZED, NOT_ESTABLISHED). Generalized
// from the teacher's internal/session context holder: the same
// mutex-guarded struct with a sync.Once-style terminal transition, but
// widened from a generic cancelable value store into sequence-numbered
// application delivery plus a heartbeat timer, grounded on
// client/facade.go's ticker-driven heartbeatLoop.

package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/control"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
	"github.com/momentics/fixp-ws-client/internal/logging"
)

// OnApplication is invoked by the session's dispatch path for each
// in-order inbound application message. The payload is only valid for
// the duration of the call (§3 response-view lifetime).
type OnApplication func(seqNo uint64, payload []byte)

// Session implements the FIXP session machine over one transport at a
// time. A Session survives transport unbind/reconnect; it does not
// survive Finalize.
type Session struct {
	id        uuid.UUID
	messenger api.SessionMessenger
	prom      *control.PrometheusMetrics
	log       *logging.Logger
	onApp     OnApplication
	onErr     func(error)

	mu    sync.Mutex
	cond  *sync.Cond
	state api.SessionState

	nextOutboundSeqNo    uint64
	expectedInboundSeqNo uint64

	heartbeatInterval time.Duration
	heartbeatQuit     chan struct{}
	heartbeatDone     chan struct{}
	lastInboundAt     time.Time
	lastOutboundAt    time.Time
	missedIntervals   int

	transport api.Transport
	sub       *subscription
}

// New constructs a session in NOT_NEGOTIATED with a freshly-generated
// identity. prom may be nil if metrics are not wired.
func New(messenger api.SessionMessenger, prom *control.PrometheusMetrics) *Session {
	return NewWithID(uuid.New(), messenger, prom)
}

// NewWithID constructs a session bound to a caller-supplied identity,
// so a trader that reopens after Finalize can keep its UUID across
// the fresh *Session instance a terminal FINALIZED state requires.
func NewWithID(id uuid.UUID, messenger api.SessionMessenger, prom *control.PrometheusMetrics) *Session {
	s := &Session{
		id:                   id,
		messenger:            messenger,
		prom:                 prom,
		log:                  logging.New("session"),
		state:                api.NotNegotiated,
		nextOutboundSeqNo:    1,
		expectedInboundSeqNo: 1,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// ID returns the session's 16-byte identity.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current state.
func (s *Session) State() api.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe attaches sub for demand-pull event delivery. Only one
// subscriber is supported at a time; a second call replaces the
// first, which is cancelled.
func (s *Session) Subscribe(sub api.EventSubscriber) {
	s.mu.Lock()
	prev := s.sub
	s.sub = newSubscription(sub)
	s.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}

// OnError registers the callback invoked when an inbound frame's
// session-control envelope fails to decode (§7: "logged and skipped").
// If unset, the error is logged and otherwise swallowed; decoding
// always continues with the next frame regardless.
func (s *Session) OnError(cb func(error)) {
	s.mu.Lock()
	s.onErr = cb
	s.mu.Unlock()
}

func (s *Session) notifyErr(err error) {
	s.mu.Lock()
	cb := s.onErr
	s.mu.Unlock()
	if cb != nil {
		cb(err)
		return
	}
	s.log.Errorf("%v", err)
}

// transitionLocked applies a state change, bumps metrics, and
// publishes the event. Caller must hold s.mu.
func (s *Session) transitionLocked(to api.SessionState, cause api.Cause) {
	s.state = to
	if s.prom != nil {
		s.prom.SessionStateChanges.Inc()
	}
	s.cond.Broadcast()
	if s.sub != nil {
		s.sub.publish(api.SessionEvent{State: to, Cause: cause, At: time.Now()})
	}
}

// Negotiate binds transport, emits a Negotiate frame, and starts the
// handshake. The session stays NOT_NEGOTIATED until the peer's
// NegotiationResponse arrives via HandleFrame.
func (s *Session) Negotiate(transport api.Transport, heartbeatInterval time.Duration) error {
	s.mu.Lock()
	s.transport = transport
	s.heartbeatInterval = heartbeatInterval
	s.mu.Unlock()

	raw, err := s.messenger.EncodeNegotiate(s.id, time.Now(), heartbeatInterval)
	if err != nil {
		return err
	}
	if err := transport.Send(raw); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastOutboundAt = time.Now()
	s.transitionLocked(api.NotNegotiated, api.CauseTransportConnected)
	s.mu.Unlock()
	return nil
}

// HandleFrame implements concurrency.FrameHandler: it is called from
// the dispatcher's single worker goroutine for every inbound frame,
// never concurrently with itself.
func (s *Session) HandleFrame(f concurrency.Frame) {
	msg, err := s.messenger.Decode(f.Region)
	if err != nil {
		s.notifyErr(&api.MessageError{Reason: "decode inbound session envelope", Err: err})
		return
	}

	s.mu.Lock()
	s.lastInboundAt = time.Now()
	s.missedIntervals = 0
	s.mu.Unlock()

	switch msg.Type {
	case api.SessionMessageNegotiationResponse:
		s.handleNegotiationResponse()
	case api.SessionMessageEstablishmentAck:
		s.handleEstablishmentAck()
	case api.SessionMessageTerminate:
		s.handlePeerTerminate(msg.Reason)
	case api.SessionMessageApplication:
		s.handleApplication(msg.SeqNo, msg.Payload)
	case api.SessionMessageSequence, api.SessionMessageRetransmitRequest:
		// peer-originated liveness/recovery control frames; no state
		// change required on receipt.
	}
}

func (s *Session) handleNegotiationResponse() {
	s.mu.Lock()
	if s.state != api.NotNegotiated {
		s.mu.Unlock()
		return
	}
	s.transitionLocked(api.Negotiated, api.CauseNegotiationAccepted)
	s.startHeartbeatLocked()
	transport := s.transport
	raw, err := s.messenger.EncodeEstablish(s.id, time.Now(), s.heartbeatInterval)
	s.mu.Unlock()
	if err != nil || transport == nil {
		return
	}
	_ = transport.Send(raw)
}

func (s *Session) handleEstablishmentAck() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != api.Negotiated && s.state != api.NotEstablished {
		return
	}
	s.transitionLocked(api.Established, api.CauseEstablishmentAck)
}

func (s *Session) handlePeerTerminate(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalizeLocked()
}

func (s *Session) handleApplication(seqNo uint64, payload []byte) {
	s.mu.Lock()
	expected := s.expectedInboundSeqNo
	transport := s.transport
	switch {
	case seqNo == expected:
		s.expectedInboundSeqNo++
		if s.prom != nil {
			s.prom.ExpectedInboundSeqNo.Set(float64(s.expectedInboundSeqNo))
		}
		cb := s.onApp
		s.mu.Unlock()
		if cb != nil {
			cb(seqNo, payload)
		}
		return
	case seqNo > expected:
		raw, err := s.messenger.EncodeRetransmitRequest(expected, seqNo-1)
		s.mu.Unlock()
		if err == nil && transport != nil {
			_ = transport.Send(raw)
		}
		return
	default:
		// seqNo < expected: duplicate, discard.
		s.mu.Unlock()
	}
}

// OnApplication registers the callback invoked for each in-order
// inbound application message.
func (s *Session) OnApplication(cb OnApplication) {
	s.mu.Lock()
	s.onApp = cb
	s.mu.Unlock()
}

// SendApplication blocks until ESTABLISHED (or timeout), frames the
// payload with the next outbound sequence number, and hands it to the
// transport. The caller's buffer is considered consumed regardless of
// outcome.
func (s *Session) SendApplication(payload []byte, timeout time.Duration) (uint64, error) {
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		timedOut = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	s.mu.Lock()
	for s.state != api.Established && !timedOut {
		s.cond.Wait()
	}
	if s.state != api.Established {
		s.mu.Unlock()
		return 0, api.ErrNotEstablished
	}
	seqNo := s.nextOutboundSeqNo
	transport := s.transport
	s.mu.Unlock()

	raw, err := s.messenger.EncodeApplication(seqNo, payload)
	if err != nil {
		return 0, err
	}
	if err := transport.Send(raw); err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.nextOutboundSeqNo++
	s.lastOutboundAt = time.Now()
	if s.prom != nil {
		s.prom.NextOutboundSeqNo.Set(float64(s.nextOutboundSeqNo))
	}
	s.mu.Unlock()
	return seqNo, nil
}

// WaitForState blocks until the session reaches target or timeout
// elapses, mirroring SendApplication's condition-wait shape (§5's
// "bounded wait for state == X" design note). Used by the trader
// facade's Close (wait for FINALIZED) and Suspend (wait for
// NOT_ESTABLISHED).
func (s *Session) WaitForState(target api.SessionState, timeout time.Duration) error {
	timedOut := false
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		timedOut = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for s.state != target && !timedOut {
		s.cond.Wait()
	}
	if s.state != target {
		return api.ErrTimedOut
	}
	return nil
}

// Unbind demotes an ESTABLISHED (or NEGOTIATED) session to
// NOT_ESTABLISHED and stops the heartbeat timer, without finalizing.
// Callers invoke this when the transport fails or is closed out from
// under the session.
func (s *Session) Unbind() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != api.Established && s.state != api.Negotiated {
		return
	}
	s.stopHeartbeatLocked()
	s.transitionLocked(api.NotEstablished, api.CauseTransportUnbind)
}

// Reconnect rebinds a fresh transport and restores ESTABLISHED without
// renegotiating (§4.5's NOT_ESTABLISHED -> ESTABLISHED transition).
func (s *Session) Reconnect(transport api.Transport) error {
	s.mu.Lock()
	if s.state != api.NotEstablished {
		s.mu.Unlock()
		return api.ErrInvalidArgument
	}
	s.transport = transport
	s.startHeartbeatLocked()
	s.transitionLocked(api.Established, api.CauseTransportReconnected)
	s.mu.Unlock()
	return nil
}

// Finalize sends Terminate and moves the session to the terminal
// FINALIZED state. Idempotent; further sends are rejected.
func (s *Session) Finalize(reason string) error {
	s.mu.Lock()
	if s.state == api.Finalized {
		s.mu.Unlock()
		return nil
	}
	transport := s.transport
	s.mu.Unlock()

	if transport != nil {
		if raw, err := s.messenger.EncodeTerminate(s.id, reason); err == nil {
			_ = transport.Send(raw)
		}
	}

	s.mu.Lock()
	s.finalizeLocked()
	s.mu.Unlock()
	if s.sub != nil {
		s.sub.Cancel()
	}
	return nil
}

// finalizeLocked applies the terminal transition. Caller must hold s.mu.
func (s *Session) finalizeLocked() {
	if s.state == api.Finalized {
		return
	}
	s.stopHeartbeatLocked()
	s.transitionLocked(api.Finalized, api.CauseFinalize)
}

// startHeartbeatLocked launches the heartbeat goroutine if one is not
// already running. Caller must hold s.mu.
func (s *Session) startHeartbeatLocked() {
	if s.heartbeatQuit != nil || s.heartbeatInterval <= 0 {
		return
	}
	s.lastInboundAt = time.Now()
	s.lastOutboundAt = time.Now()
	s.heartbeatQuit = make(chan struct{})
	s.heartbeatDone = make(chan struct{})
	go s.heartbeatLoop(s.heartbeatQuit, s.heartbeatDone, s.heartbeatInterval)
}

// stopHeartbeatLocked signals and joins the heartbeat goroutine. Must
// never be called from the heartbeat goroutine itself (it would join
// against its own exit and deadlock forever) — only from another
// goroutine (Unbind, Finalize, a peer Terminate). The heartbeat
// goroutine's own self-demotion path uses clearHeartbeatLocked
// instead. Caller must hold s.mu; the join happens with the lock
// released to avoid a self-deadlock against heartbeatLoop's own
// locking.
func (s *Session) stopHeartbeatLocked() {
	if s.heartbeatQuit == nil {
		return
	}
	quit, done := s.heartbeatQuit, s.heartbeatDone
	s.heartbeatQuit, s.heartbeatDone = nil, nil
	close(quit)
	s.mu.Unlock()
	<-done
	s.mu.Lock()
}

// clearHeartbeatLocked drops the heartbeat channel references without
// signaling or joining anything. Safe to call only from inside the
// heartbeat goroutine itself, right before it returns on its own
// (onHeartbeatTick's self-demotion path): heartbeatLoop's own
// deferred close(done) performs the exit, so there is nothing left to
// join. Caller must hold s.mu.
func (s *Session) clearHeartbeatLocked() {
	s.heartbeatQuit, s.heartbeatDone = nil, nil
}

// heartbeatLoop fires every interval. Silence on the inbound side for
// one interval emits a Sequence heartbeat; silence for two consecutive
// intervals demotes the session to NOT_ESTABLISHED and the loop exits
// on its own (onHeartbeatTick reports back via its return value).
func (s *Session) heartbeatLoop(quit <-chan struct{}, done chan<- struct{}, interval time.Duration) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			if s.onHeartbeatTick() {
				return
			}
		}
	}
}

// onHeartbeatTick runs on the heartbeat goroutine. It returns true
// when it has demoted the session to NOT_ESTABLISHED, telling
// heartbeatLoop to exit without joining itself.
func (s *Session) onHeartbeatTick() bool {
	s.mu.Lock()
	if s.state != api.Established && s.state != api.Negotiated {
		s.mu.Unlock()
		return false
	}
	silentInbound := time.Since(s.lastInboundAt) >= s.heartbeatInterval
	transport := s.transport
	if s.prom != nil {
		s.prom.HeartbeatMisses.Set(float64(s.missedIntervals))
	}
	if !silentInbound {
		s.mu.Unlock()
		return false
	}
	s.missedIntervals++
	if s.missedIntervals >= 2 {
		s.clearHeartbeatLocked()
		s.transitionLocked(api.NotEstablished, api.CauseHeartbeatLapsed)
		s.mu.Unlock()
		return true
	}
	if s.sub != nil {
		s.sub.publish(api.SessionEvent{State: s.state, Cause: api.CauseHeartbeatTimeout, At: time.Now()})
	}
	seqNo := s.nextOutboundSeqNo
	s.mu.Unlock()

	if transport == nil {
		return false
	}
	raw, err := s.messenger.EncodeSequence(seqNo)
	if err != nil {
		return false
	}
	_ = transport.Send(raw)

	s.mu.Lock()
	s.lastOutboundAt = time.Now()
	s.mu.Unlock()
	return false
}

var _ concurrency.FrameHandler = (*Session)(nil)
var _ api.Subscription = (*subscription)(nil)
