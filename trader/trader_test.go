// File: trader/trader_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Exercises the Trader facade end to end over a fake.Transport, wired
// in through Config.Dial so no live exchange is needed, grounded on
// the teacher's client/facade_test.go shape (dial a fake, drive the
// handshake by hand, assert on delivered state/messages).

package trader_test

import (
	"encoding/binary"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/codec/sbe"
	_ "github.com/momentics/fixp-ws-client/codec/sbe"
	"github.com/momentics/fixp-ws-client/fake"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
	"github.com/momentics/fixp-ws-client/trader"
)

// putHeader writes the shared 8-byte little-endian SBE header.
func putHeader(blockLength, templateID uint16) []byte {
	b := make([]byte, sbe.HeaderLen)
	binary.LittleEndian.PutUint16(b[0:2], blockLength)
	binary.LittleEndian.PutUint16(b[2:4], templateID)
	binary.LittleEndian.PutUint16(b[4:6], sbe.SchemaID)
	binary.LittleEndian.PutUint16(b[6:8], sbe.Version)
	return b
}

func negotiationResponseFrame(sessionID [16]byte) []byte {
	frame := append(putHeader(16, sbe.TemplateNegotiationResponse), sessionID[:]...)
	return frame
}

func establishmentAckFrame(sessionID [16]byte) []byte {
	frame := append(putHeader(16, sbe.TemplateEstablishmentAck), sessionID[:]...)
	return frame
}

// applicationFrame wraps an inner SBE response payload (e.g. an
// ExecutionReport) in a session-control Application envelope, exactly
// as a peer's outbound frame would arrive over the wire.
func applicationFrame(seqNo uint64, payload []byte) []byte {
	body := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint64(body[0:8], seqNo)
	copy(body[8:], payload)
	frame := append(putHeader(uint16(len(body)), sbe.TemplateApplication), body...)
	return frame
}

func putString(dst []byte, s string) []byte {
	var l [2]byte
	binary.LittleEndian.PutUint16(l[:], uint16(len(s)))
	dst = append(dst, l[:]...)
	dst = append(dst, s...)
	return dst
}

// executionReportPayload builds a minimal ExecutionReport matching
// codec/sbe/response.go's decode order.
func executionReportPayload(seqNo uint64, clOrdID, orderID string, execType, ordStatus byte, symbol string, lastQty, lastPx float64) []byte {
	body := make([]byte, 0, 64)
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], seqNo)
	body = append(body, seq[:]...)
	body = putString(body, clOrdID)
	body = putString(body, orderID)
	body = append(body, execType, ordStatus)
	body = putString(body, symbol)
	var qty, px [8]byte
	binary.LittleEndian.PutUint64(qty[:], math.Float64bits(lastQty))
	binary.LittleEndian.PutUint64(px[:], math.Float64bits(lastPx))
	body = append(body, qty[:]...)
	body = append(body, px[:]...)
	frame := append(putHeader(uint16(len(body)), sbe.TemplateExecutionReport), body...)
	return frame
}

// newTraderWithFake constructs a Trader whose Dial hook returns a
// fake.Transport the test can Deliver frames into and inspect
// SentFrames from.
func newTraderWithFake(t *testing.T, cfg trader.Config) (*trader.Trader, *fakeHandle) {
	t.Helper()
	h := &fakeHandle{}
	cfg.Dial = func(c trader.Config, disp *concurrency.Dispatcher, bp api.BufferPool, onClose func()) (api.Transport, error) {
		tr := fake.NewTransport("fake://peer", disp)
		h.mu.Lock()
		h.transport = tr
		h.onClose = onClose
		h.mu.Unlock()
		return tr, tr.Open()
	}
	tr, err := trader.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr, h
}

type fakeHandle struct {
	mu        sync.Mutex
	transport *fake.Transport
	onClose   func()
}

func (h *fakeHandle) get() (*fake.Transport, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.transport, h.onClose
}

func waitForState(t *testing.T, tr *trader.Trader, want api.SessionState, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if tr.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, got %s", want, tr.State())
}

func establish(t *testing.T, tr *trader.Trader, h *fakeHandle) {
	t.Helper()
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ft, _ := h.get()
	if ft == nil {
		t.Fatal("dial never populated the fake transport")
	}
	ft.Deliver(negotiationResponseFrame(tr.ID()))
	waitForState(t, tr, api.Negotiated, time.Second)
	ft.Deliver(establishmentAckFrame(tr.ID()))
	waitForState(t, tr, api.Established, time.Second)
}

func TestOpenEstablishSendReceive(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade"})
	establish(t, tr, h)

	var gotSource string
	var gotSeq uint64
	var gotMsg api.Message
	done := make(chan struct{})
	tr.OnApplication(func(source string, msg api.Message, seqNo uint64) {
		gotSource, gotSeq, gotMsg = source, seqNo, msg
		close(done)
	})

	ft, _ := h.get()
	payload := executionReportPayload(1, "CL-1", "OID-1", 'F', '2', "AAPL", 100, 189.5)
	ft.Deliver(applicationFrame(1, payload))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivered application message")
	}
	if gotSource != ft.Source() {
		t.Fatalf("unexpected source %q", gotSource)
	}
	if gotSeq != 1 {
		t.Fatalf("unexpected seqNo %d", gotSeq)
	}
	er, ok := gotMsg.(api.ExecutionReport)
	if !ok {
		t.Fatalf("expected ExecutionReport view, got %T", gotMsg)
	}
	if er.ClOrdID() != "CL-1" || er.Symbol() != "AAPL" {
		t.Fatalf("unexpected execution report: %+v", er)
	}

	order, err := tr.CreateOrder()
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	buf, err := order.SetClOrdID("CL-2").SetSymbol("AAPL").SetSide(api.SideBuy).
		SetOrderQty(10).SetPrice(190).SetOrdType(api.OrdTypeLimit).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	seqNo, err := tr.Send(buf)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if seqNo != 1 {
		t.Fatalf("unexpected outbound seqNo %d", seqNo)
	}
	if len(ft.SentFrames()) == 0 {
		t.Fatal("expected at least one frame sent to the transport")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got := tr.State(); got != api.Finalized {
		t.Fatalf("expected FINALIZED after Close, got %s", got)
	}
}

func TestSendBeforeEstablishedTimesOut(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade", SendTimeout: 50 * time.Millisecond})
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ft, _ := h.get()
	if ft == nil {
		t.Fatal("dial never populated the fake transport")
	}

	order, err := tr.CreateOrder()
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	buf, err := order.SetClOrdID("CL-1").SetSymbol("AAPL").SetSide(api.SideBuy).
		SetOrderQty(1).SetPrice(1).SetOrdType(api.OrdTypeLimit).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	_, err = tr.Send(buf)
	if !errors.Is(err, api.ErrNotEstablished) {
		t.Fatalf("expected ErrNotEstablished, got %v", err)
	}
}

func TestUnknownSchemaFrameIsDropped(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade"})
	var errs []error
	var mu sync.Mutex
	tr.OnError(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	if err := tr.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ft, _ := h.get()

	bad := make([]byte, sbe.HeaderLen)
	binary.LittleEndian.PutUint16(bad[4:6], 9999)
	ft.Deliver(bad)

	time.Sleep(50 * time.Millisecond)
	if tr.State() != api.NotNegotiated {
		t.Fatalf("unknown-schema frame should not change state, got %s", tr.State())
	}
}

func TestDuplicateInboundIsDiscarded(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade"})
	establish(t, tr, h)
	ft, _ := h.get()

	var deliveries []uint64
	var mu sync.Mutex
	tr.OnApplication(func(source string, msg api.Message, seqNo uint64) {
		mu.Lock()
		deliveries = append(deliveries, seqNo)
		mu.Unlock()
	})

	payload := executionReportPayload(1, "CL-1", "OID-1", 'F', '2', "AAPL", 1, 1)
	ft.Deliver(applicationFrame(1, payload))
	time.Sleep(50 * time.Millisecond)
	ft.Deliver(applicationFrame(1, payload))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(deliveries) != 1 {
		t.Fatalf("expected exactly one delivery for the duplicate seqNo, got %v", deliveries)
	}
}

func TestGapInboundTriggersRetransmitRequest(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade"})
	establish(t, tr, h)
	ft, _ := h.get()

	before := len(ft.SentFrames())
	payload := executionReportPayload(3, "CL-1", "OID-1", 'F', '2', "AAPL", 1, 1)
	ft.Deliver(applicationFrame(3, payload))
	time.Sleep(50 * time.Millisecond)

	sent := ft.SentFrames()
	if len(sent) <= before {
		t.Fatal("expected a RetransmitRequest frame to be sent for the sequence gap")
	}
	last := sent[len(sent)-1]
	hdr, err := readHeaderForTest(last)
	if err != nil {
		t.Fatalf("readHeaderForTest: %v", err)
	}
	if hdr != sbe.TemplateRetransmitRequest {
		t.Fatalf("expected TemplateRetransmitRequest, got template %d", hdr)
	}
}

func readHeaderForTest(raw []byte) (uint16, error) {
	if len(raw) < sbe.HeaderLen {
		return 0, errors.New("short frame")
	}
	return binary.LittleEndian.Uint16(raw[2:4]), nil
}

func TestHeartbeatLapseUnbindsThenReconnectRestoresEstablished(t *testing.T) {
	tr, h := newTraderWithFake(t, trader.Config{Addr: "wss://x/trade", HeartbeatInterval: 20 * time.Millisecond})
	establish(t, tr, h)

	// Silence on the inbound side for two heartbeat intervals lapses
	// the session to NOT_ESTABLISHED without any transport action.
	waitForState(t, tr, api.NotEstablished, time.Second)

	if err := tr.Open(); err != nil {
		t.Fatalf("reconnect Open: %v", err)
	}
	waitForState(t, tr, api.Established, time.Second)

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
