// Package fake
// Author: momentics <momentics@gmail.com>
//
// In-process fake api.Transport, adapted from the teacher's
// fake/transport.go (fake api.Transport over batched [][]byte
// Send/Recv) to this module's framed single-[]byte api.Transport:
// same controllable-error, captured-sent-data shape, generalized so
// the session FSM and dispatcher can be exercised deterministically
// in tests without a live exchange (§8's test-tooling note).

package fake

import (
	"sync"

	"github.com/momentics/fixp-ws-client/api"
	"github.com/momentics/fixp-ws-client/internal/concurrency"
)

// Transport is a fake implementation of api.Transport for testing.
// Frames pushed in via Deliver are submitted to the bound dispatcher
// exactly as transport.Client's read loop would submit a decoded
// WebSocket payload.
type Transport struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool

	source string
	disp   *concurrency.Dispatcher

	openErr  error
	sendErr  error
	closeErr error
}

// NewTransport constructs a fake transport identified by source,
// submitting inbound frames onto disp.
func NewTransport(source string, disp *concurrency.Dispatcher) *Transport {
	return &Transport{source: source, disp: disp}
}

// Open implements api.Transport.
func (t *Transport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.openErr != nil {
		return t.openErr
	}
	t.closed = false
	return nil
}

// Send implements api.Transport.
func (t *Transport) Send(frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return api.ErrTransportClosed
	}
	if t.sendErr != nil {
		return t.sendErr
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	t.sent = append(t.sent, cp)
	return nil
}

// Close implements api.Transport.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closeErr != nil {
		return t.closeErr
	}
	t.closed = true
	return nil
}

// Source implements api.Transport.
func (t *Transport) Source() string { return t.source }

// Features implements api.Transport.
func (t *Transport) Features() api.TransportFeatures {
	return api.TransportFeatures{ZeroCopy: false, TLS: false, OS: []string{"fake"}}
}

// SetOpenError configures Open to fail with err.
func (t *Transport) SetOpenError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.openErr = err
}

// SetSendError configures Send to fail with err.
func (t *Transport) SetSendError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sendErr = err
}

// SetCloseError configures Close to fail with err.
func (t *Transport) SetCloseError(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closeErr = err
}

// Deliver submits raw as an inbound frame from this transport's
// source, as if it had just arrived over the wire.
func (t *Transport) Deliver(raw []byte) {
	t.disp.Submit(concurrency.Frame{SourceID: t.source, Region: raw})
}

// SentFrames returns a copy of every frame handed to Send so far.
func (t *Transport) SentFrames() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent))
	copy(out, t.sent)
	return out
}

var _ api.Transport = (*Transport)(nil)
