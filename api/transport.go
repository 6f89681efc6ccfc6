// File: api/transport.go
// Author: momentics <momentics@gmail.com>
//
// Defines the transport adapter abstraction (§4.4): lifecycle of a
// WebSocket client connection, inbound bytes toward the ring
// dispatcher, outbound bytes from the session.

package api

import "time"

// Transport owns a single WebSocket client connection. Open returns
// only once the TLS handshake and WebSocket upgrade have succeeded;
// otherwise it fails with a *TransportError.
type Transport interface {
	// Open dials, upgrades, and begins delivering inbound frames.
	Open() error

	// Send transmits one already-framed outbound payload.
	Send(frame []byte) error

	// Close tears down the connection. Idempotent.
	Close() error

	// Source returns an opaque identifier for this transport,
	// typically the peer URI.
	Source() string

	// Features reports capability hints of this transport.
	Features() TransportFeatures
}

// Deadline is implemented by transports that support per-call I/O
// deadlines; type-asserted by callers that need it (mirrors the
// teacher's optional-interface pattern in client/client.go).
type Deadline interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// TransportFeatures describes non-functional properties of a
// Transport implementation.
type TransportFeatures struct {
	ZeroCopy bool
	TLS      bool
	OS       []string
}
