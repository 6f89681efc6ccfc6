package sbe_test

import (
	"sync"
	"testing"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/codec"
	"github.com/momentics/fixp-ws-client/codec/sbe"
)

type testPool struct {
	mu  sync.Mutex
	inU int64
}

func (p *testPool) Get(size int) api.Buffer {
	p.mu.Lock()
	p.inU++
	p.mu.Unlock()
	return api.Buffer{Data: make([]byte, size), Class: size, Pool: p}
}
func (p *testPool) Put(b api.Buffer) {
	p.mu.Lock()
	p.inU--
	p.mu.Unlock()
}
func (p *testPool) Stats() api.BufferPoolStats { return api.BufferPoolStats{} }

func TestProviderRegistered(t *testing.T) {
	p, err := codec.Lookup(sbe.ProviderName)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != sbe.ProviderName {
		t.Fatalf("unexpected provider name %q", p.Name())
	}
}

func TestLookupUnknownProvider(t *testing.T) {
	if _, err := codec.Lookup("NO_SUCH_ENCODING"); err != api.ErrNoSuchProvider {
		t.Fatalf("expected ErrNoSuchProvider, got %v", err)
	}
}

func TestNewOrderSingleRoundTrip(t *testing.T) {
	pool := &testPool{}
	rf := sbe.NewRequestFactory(pool)
	buf, err := rf.NewOrderSingle().
		SetClOrdID("CL-1").
		SetSymbol("AAPL").
		SetSide(api.SideBuy).
		SetOrderQty(100).
		SetPrice(189.5).
		SetOrdType(api.OrdTypeLimit).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Bytes()) == 0 {
		t.Fatal("expected non-empty built frame")
	}
}

func TestSessionMessengerEncodeDecodeApplication(t *testing.T) {
	m := sbe.NewSessionMessenger()
	raw, err := m.EncodeApplication(42, []byte("payload"))
	if err != nil {
		t.Fatal(err)
	}
	msg, err := m.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != api.SessionMessageApplication || msg.SeqNo != 42 {
		t.Fatalf("unexpected decoded message: %+v", msg)
	}
	if string(msg.Payload) != "payload" {
		t.Fatalf("payload mismatch: %q", msg.Payload)
	}
}

func TestSessionMessengerEncodeDecodeTerminate(t *testing.T) {
	m := sbe.NewSessionMessenger()
	var id [16]byte
	raw, err := m.EncodeTerminate(id, "shutting down")
	if err != nil {
		t.Fatal(err)
	}
	msg, err := m.Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if msg.Type != api.SessionMessageTerminate || msg.Reason != "shutting down" {
		t.Fatalf("unexpected decoded message: %+v", msg)
	}
}

func TestResponseFactoryUnknownTemplate(t *testing.T) {
	rf := sbe.NewResponseFactory()
	_, err := rf.Wrap([]byte{0, 0, 0, 0, 0xE9, 0x03, 1, 0})
	if err != api.ErrUnknownTemplate {
		t.Fatalf("expected ErrUnknownTemplate, got %v", err)
	}
}

func TestResponseFactoryUnknownSchema(t *testing.T) {
	rf := sbe.NewResponseFactory()
	_, err := rf.Wrap(make([]byte, sbe.HeaderLen))
	if err != api.ErrUnknownSchema {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
}
