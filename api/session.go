// File: api/session.go
// Author: momentics <momentics@gmail.com>
//
// Session state machine contracts (§3, §4.5): the five declared
// states, the {state, cause} event carried to subscribers, and the
// demand-pull subscription protocol that back-pressures slow
// observers without dropping events.

package api

import "time"

// SessionState is one of the five declared FIXP session states.
// FINALIZED is terminal; NOT_ESTABLISHED is a transport-unbind
// pseudo-state reachable only from ESTABLISHED or NEGOTIATED.
type SessionState int

const (
	NotNegotiated SessionState = iota
	Negotiated
	Established
	Finalized
	NotEstablished
)

func (s SessionState) String() string {
	switch s {
	case NotNegotiated:
		return "NOT_NEGOTIATED"
	case Negotiated:
		return "NEGOTIATED"
	case Established:
		return "ESTABLISHED"
	case Finalized:
		return "FINALIZED"
	case NotEstablished:
		return "NOT_ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// Cause names the event that drove a state transition (§4.5).
type Cause int

const (
	CauseTransportConnected Cause = iota
	CauseNegotiationAccepted
	CauseEstablishmentAck
	CauseHeartbeatTimeout
	CauseHeartbeatLapsed
	CauseTransportUnbind
	CauseTransportReconnected
	CauseFinalize
	CauseTransportError
)

func (c Cause) String() string {
	switch c {
	case CauseTransportConnected:
		return "transport-connected"
	case CauseNegotiationAccepted:
		return "negotiation-accepted"
	case CauseEstablishmentAck:
		return "establishment-ack"
	case CauseHeartbeatTimeout:
		return "heartbeat-timeout"
	case CauseHeartbeatLapsed:
		return "heartbeat-lapsed"
	case CauseTransportUnbind:
		return "transport-unbind"
	case CauseTransportReconnected:
		return "transport-reconnected"
	case CauseFinalize:
		return "finalize"
	case CauseTransportError:
		return "transport-error"
	default:
		return "unknown"
	}
}

// SessionEvent is published to at most one subscriber on every state
// change (§3, §6).
type SessionEvent struct {
	State SessionState
	Cause Cause
	At    time.Time
}

// EventSubscriber receives session events via a demand-pull protocol:
// OnSubscribe hands back a Subscription the subscriber uses to
// request(n) events; the publisher never delivers more than the
// outstanding demand. OnNext delivers one event at a time.
type EventSubscriber interface {
	OnSubscribe(sub Subscription)
	OnNext(ev SessionEvent)
}

// Subscription is the subscriber-held handle for demand-pull flow
// control and cancellation (§4.5, §9).
type Subscription interface {
	// Request signals readiness for up to n additional events.
	Request(n int)
	// Cancel detaches the subscriber; no further events are observed.
	Cancel()
}
