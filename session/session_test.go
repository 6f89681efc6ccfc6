package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
	"github.com/momentics/fixp-ws-client/session"
)

// fakeMessenger frames session-control and application messages as a
// tiny fixed-width wire format, just enough to drive the state
// machine in tests without the real codec.
type fakeMessenger struct{}

const (
	fmNegotiationResponse byte = iota
	fmEstablishmentAck
	fmTerminate
	fmSequence
	fmRetransmitRequest
	fmApplication
)

func (fakeMessenger) EncodeNegotiate(id [16]byte, ts time.Time, hb time.Duration) ([]byte, error) {
	return []byte{fmNegotiationResponse}, nil
}
func (fakeMessenger) EncodeEstablish(id [16]byte, ts time.Time, hb time.Duration) ([]byte, error) {
	return []byte{fmEstablishmentAck}, nil
}
func (fakeMessenger) EncodeTerminate(id [16]byte, reason string) ([]byte, error) {
	return []byte{fmTerminate}, nil
}
func (fakeMessenger) EncodeSequence(seqNo uint64) ([]byte, error) {
	return []byte{fmSequence}, nil
}
func (fakeMessenger) EncodeRetransmitRequest(from, to uint64) ([]byte, error) {
	return []byte{fmRetransmitRequest, byte(from), byte(to)}, nil
}
func (fakeMessenger) EncodeApplication(seqNo uint64, payload []byte) ([]byte, error) {
	out := append([]byte{fmApplication, byte(seqNo)}, payload...)
	return out, nil
}
func (fakeMessenger) Decode(raw []byte) (api.SessionMessage, error) {
	if len(raw) == 0 {
		return api.SessionMessage{}, api.ErrInvalidArgument
	}
	switch raw[0] {
	case fmNegotiationResponse:
		return api.SessionMessage{Type: api.SessionMessageNegotiationResponse}, nil
	case fmEstablishmentAck:
		return api.SessionMessage{Type: api.SessionMessageEstablishmentAck}, nil
	case fmTerminate:
		return api.SessionMessage{Type: api.SessionMessageTerminate}, nil
	case fmApplication:
		return api.SessionMessage{
			Type:    api.SessionMessageApplication,
			SeqNo:   uint64(raw[1]),
			Payload: raw[2:],
		}, nil
	default:
		return api.SessionMessage{}, api.ErrInvalidArgument
	}
}

var _ api.SessionMessenger = fakeMessenger{}

// fakeTransport records every frame handed to Send.
type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
}

func (t *fakeTransport) Open() error  { return nil }
func (t *fakeTransport) Close() error { return nil }
func (t *fakeTransport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := append([]byte(nil), frame...)
	t.sent = append(t.sent, cp)
	return nil
}
func (t *fakeTransport) Source() string { return "fake://test" }
func (t *fakeTransport) Features() api.TransportFeatures {
	return api.TransportFeatures{}
}
func (t *fakeTransport) lastSent() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.sent) == 0 {
		return nil
	}
	return t.sent[len(t.sent)-1]
}

var _ api.Transport = (*fakeTransport)(nil)

// recordingSubscriber captures every event delivered via OnNext and
// requests unbounded demand up front.
type recordingSubscriber struct {
	mu     sync.Mutex
	events []api.SessionEvent
}

func (r *recordingSubscriber) OnSubscribe(sub api.Subscription) {
	sub.Request(1 << 20)
}
func (r *recordingSubscriber) OnNext(ev api.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}
func (r *recordingSubscriber) snapshot() []api.SessionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]api.SessionEvent(nil), r.events...)
}

func waitForState(t *testing.T, s *session.Session, want api.SessionState) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", want, s.State())
}

func establish(t *testing.T, s *session.Session, tr *fakeTransport) {
	t.Helper()
	if err := s.Negotiate(tr, 50*time.Millisecond); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	s.HandleFrame(concurrency.Frame{Region: []byte{fmNegotiationResponse}})
	waitForState(t, s, api.Negotiated)
	s.HandleFrame(concurrency.Frame{Region: []byte{fmEstablishmentAck}})
	waitForState(t, s, api.Established)
}

func TestHappyPathEstablishAndSend(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	establish(t, s, tr)

	seqNo, err := s.SendApplication([]byte("order"), time.Second)
	if err != nil {
		t.Fatalf("SendApplication: %v", err)
	}
	if seqNo != 1 {
		t.Fatalf("expected seqNo 1, got %d", seqNo)
	}
	seqNo2, err := s.SendApplication([]byte("order2"), time.Second)
	if err != nil {
		t.Fatalf("SendApplication: %v", err)
	}
	if seqNo2 != 2 {
		t.Fatalf("expected seqNo 2, got %d", seqNo2)
	}
}

func TestSendBeforeEstablishedTimesOut(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	_, err := s.SendApplication([]byte("order"), 20*time.Millisecond)
	if err != api.ErrNotEstablished {
		t.Fatalf("expected ErrNotEstablished, got %v", err)
	}
}

func TestDuplicateInboundDiscarded(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	establish(t, s, tr)

	var delivered []uint64
	s.OnApplication(func(seqNo uint64, payload []byte) {
		delivered = append(delivered, seqNo)
	})

	s.HandleFrame(concurrency.Frame{Region: []byte{fmApplication, 1, 'a'}})
	s.HandleFrame(concurrency.Frame{Region: []byte{fmApplication, 1, 'a'}})

	if len(delivered) != 1 {
		t.Fatalf("expected exactly one delivery, got %d: %v", len(delivered), delivered)
	}
}

func TestGapInboundEmitsRetransmitRequest(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	establish(t, s, tr)

	s.HandleFrame(concurrency.Frame{Region: []byte{fmApplication, 3, 'z'}})

	last := tr.lastSent()
	if len(last) == 0 || last[0] != fmRetransmitRequest {
		t.Fatalf("expected a retransmit request frame, got %v", last)
	}
}

func TestUnbindAndReconnectRestoresEstablished(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	establish(t, s, tr)

	s.Unbind()
	waitForState(t, s, api.NotEstablished)

	tr2 := &fakeTransport{}
	if err := s.Reconnect(tr2); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	waitForState(t, s, api.Established)

	if _, err := s.SendApplication([]byte("after-reconnect"), time.Second); err != nil {
		t.Fatalf("SendApplication after reconnect: %v", err)
	}
}

func TestFinalizeRejectsFurtherSends(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	establish(t, s, tr)

	if err := s.Finalize("done"); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	waitForState(t, s, api.Finalized)

	if _, err := s.SendApplication([]byte("x"), 20*time.Millisecond); err != api.ErrNotEstablished {
		t.Fatalf("expected ErrNotEstablished after finalize, got %v", err)
	}
}

func TestHeartbeatLapseDemotesToNotEstablished(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	tr := &fakeTransport{}
	if err := s.Negotiate(tr, 15*time.Millisecond); err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	s.HandleFrame(concurrency.Frame{Region: []byte{fmNegotiationResponse}})
	waitForState(t, s, api.Negotiated)
	s.HandleFrame(concurrency.Frame{Region: []byte{fmEstablishmentAck}})
	waitForState(t, s, api.Established)

	// No further inbound traffic: two heartbeat intervals should lapse
	// the session back to NOT_ESTABLISHED.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && s.State() != api.NotEstablished {
		time.Sleep(5 * time.Millisecond)
	}
	if s.State() != api.NotEstablished {
		t.Fatalf("expected NOT_ESTABLISHED after heartbeat lapse, got %s", s.State())
	}
}

func TestSubscriberReceivesStateEvents(t *testing.T) {
	s := session.New(fakeMessenger{}, nil)
	rec := &recordingSubscriber{}
	s.Subscribe(rec)

	tr := &fakeTransport{}
	establish(t, s, tr)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && len(rec.snapshot()) < 3 {
		time.Sleep(5 * time.Millisecond)
	}
	events := rec.snapshot()
	if len(events) < 3 {
		t.Fatalf("expected at least 3 events, got %d", len(events))
	}
	if events[len(events)-1].State != api.Established {
		t.Fatalf("expected final event state ESTABLISHED, got %s", events[len(events)-1].State)
	}
}
