// File: api/codec.go
// Author: momentics <momentics@gmail.com>
//
// Message-codec facade contracts (§4.3): a name-keyed provider wraps
// one wire encoding into mutable request builders, read-only response
// views, and a session-control framer. The default wire format is SBE
// with a fixed four-field header (§6).

package api

import "time"

// MessageHeader is the fixed SBE wire header shared by every frame.
type MessageHeader struct {
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
}

// Side is the order side (application field; layout is provider-
// specific per §1, kept minimal here).
type Side byte

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

// OrdType names the order pricing method.
type OrdType byte

const (
	OrdTypeMarket OrdType = 1
	OrdTypeLimit  OrdType = 2
)

// MutableNewOrderSingle is a thread-affine request builder (§3, §4.3):
// safe to create concurrently, but must be populated entirely on its
// creating goroutine. Build encodes into a pool-drawn Buffer that the
// caller transfers to Trader.Send.
type MutableNewOrderSingle interface {
	SetClOrdID(id string) MutableNewOrderSingle
	SetSymbol(sym string) MutableNewOrderSingle
	SetSide(s Side) MutableNewOrderSingle
	SetOrderQty(qty float64) MutableNewOrderSingle
	SetPrice(px float64) MutableNewOrderSingle
	SetOrdType(t OrdType) MutableNewOrderSingle
	Build() (Buffer, error)
}

// MutableOrderCancelRequest is the cancel-request builder counterpart.
type MutableOrderCancelRequest interface {
	SetClOrdID(id string) MutableOrderCancelRequest
	SetOrigClOrdID(id string) MutableOrderCancelRequest
	SetSymbol(sym string) MutableOrderCancelRequest
	SetSide(s Side) MutableOrderCancelRequest
	Build() (Buffer, error)
}

// RequestFactory produces fresh, pool-backed request builders. A new
// builder is returned per call; nothing is shared across goroutines,
// which satisfies the "populate on creating thread" contract without
// goroutine-local storage (§9).
type RequestFactory interface {
	NewOrderSingle() MutableNewOrderSingle
	OrderCancelRequest() MutableOrderCancelRequest
}

// MessageType discriminates inbound application response views.
type MessageType int

const (
	MessageExecutionReport MessageType = iota
	MessageOrderCancelReject
)

// Message is the common read-only view contract. Views are valid only
// for the duration of the dispatch callback (§3); no retention across
// callbacks.
type Message interface {
	Type() MessageType
	SeqNo() uint64
}

// ExecutionReport is a read-only view over an inbound execution
// report frame.
type ExecutionReport interface {
	Message
	ClOrdID() string
	OrderID() string
	ExecType() byte
	OrdStatus() byte
	Symbol() string
	LastQty() float64
	LastPx() float64
}

// OrderCancelReject is a read-only view over an inbound cancel-reject
// frame.
type OrderCancelReject interface {
	Message
	ClOrdID() string
	OrigClOrdID() string
	OrdStatus() byte
	CxlRejReason() int32
	Text() string
}

// ResponseFactory wraps raw inbound application bytes into a typed,
// read-only Message view. Wrap fails with ErrUnknownSchema if
// schema-id mismatches and ErrUnknownTemplate if template-id is not
// recognized; no partial decoding is observable on failure (§8).
type ResponseFactory interface {
	Wrap(raw []byte) (Message, error)
}

// SessionMessageType discriminates session-control frames (§6).
type SessionMessageType int

const (
	SessionMessageNegotiationResponse SessionMessageType = iota
	SessionMessageEstablishmentAck
	SessionMessageTerminate
	SessionMessageSequence
	SessionMessageRetransmitRequest
	SessionMessageApplication
)

// SessionMessage is the decoded form of any session-control frame, or
// an application frame passed through for the session's sequencing
// layer to unwrap (§4.5).
type SessionMessage struct {
	Type            SessionMessageType
	SessionID       [16]byte
	SeqNo           uint64
	FromSeqNo       uint64
	ToSeqNo         uint64
	Reason          string
	HeartbeatIntrvl time.Duration
	Payload         []byte // embedded application payload, SessionMessageApplication only
}

// SessionMessenger frames and parses session-control messages
// (negotiate, establish, finalize, heartbeat, gap requests). These
// share the wire envelope with application messages but carry
// distinct template IDs and are handled by the session framer rather
// than the application codec (§6).
type SessionMessenger interface {
	EncodeNegotiate(sessionID [16]byte, ts time.Time, heartbeatInterval time.Duration) ([]byte, error)
	EncodeEstablish(sessionID [16]byte, ts time.Time, heartbeatInterval time.Duration) ([]byte, error)
	EncodeTerminate(sessionID [16]byte, reason string) ([]byte, error)
	EncodeSequence(nextSeqNo uint64) ([]byte, error)
	EncodeRetransmitRequest(fromSeqNo, toSeqNo uint64) ([]byte, error)
	EncodeApplication(seqNo uint64, payload []byte) ([]byte, error)
	Decode(raw []byte) (SessionMessage, error)
}

// Provider is the pluggable codec provider contract (§4.3), selected
// by name through a registry populated at process init (§6, §9).
type Provider interface {
	Name() string
	SchemaID() uint16
	RequestFactory(pool BufferPool) RequestFactory
	ResponseFactory() ResponseFactory
	SessionMessenger() SessionMessenger
}
