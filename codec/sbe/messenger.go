// File: codec/sbe/messenger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session-control framer: negotiate/establish/terminate/sequence/
// retransmit-request/application envelopes, all sharing the 8-byte
// SBE header with the application codec (§4.3, §6).

package sbe

import (
	"time"

	"github.com/momentics/fixp-ws-client/api"
)

type messenger struct{}

// NewSessionMessenger constructs the default session-control framer.
func NewSessionMessenger() api.SessionMessenger {
	return messenger{}
}

func (messenger) EncodeNegotiate(sessionID [16]byte, ts time.Time, heartbeatInterval time.Duration) ([]byte, error) {
	w := newWriter(HeaderLen + 16 + 8 + 8)
	w.reserveHeader()
	w.bytes(sessionID[:])
	w.uint64(uint64(ts.UnixNano()))
	w.uint64(uint64(heartbeatInterval))
	w.patchHeader(32, TemplateNegotiate)
	return w.buf, nil
}

func (messenger) EncodeEstablish(sessionID [16]byte, ts time.Time, heartbeatInterval time.Duration) ([]byte, error) {
	w := newWriter(HeaderLen + 16 + 8 + 8)
	w.reserveHeader()
	w.bytes(sessionID[:])
	w.uint64(uint64(ts.UnixNano()))
	w.uint64(uint64(heartbeatInterval))
	w.patchHeader(32, TemplateEstablish)
	return w.buf, nil
}

func (messenger) EncodeTerminate(sessionID [16]byte, reason string) ([]byte, error) {
	w := newWriter(HeaderLen + 16 + 2 + len(reason))
	w.reserveHeader()
	w.bytes(sessionID[:])
	w.string(reason)
	w.patchHeader(uint16(len(w.buf)-HeaderLen), TemplateTerminate)
	return w.buf, nil
}

func (messenger) EncodeSequence(nextSeqNo uint64) ([]byte, error) {
	w := newWriter(HeaderLen + 8)
	w.reserveHeader()
	w.uint64(nextSeqNo)
	w.patchHeader(8, TemplateSequence)
	return w.buf, nil
}

func (messenger) EncodeRetransmitRequest(fromSeqNo, toSeqNo uint64) ([]byte, error) {
	w := newWriter(HeaderLen + 16)
	w.reserveHeader()
	w.uint64(fromSeqNo)
	w.uint64(toSeqNo)
	w.patchHeader(16, TemplateRetransmitRequest)
	return w.buf, nil
}

func (messenger) EncodeApplication(seqNo uint64, payload []byte) ([]byte, error) {
	w := newWriter(HeaderLen + 8 + len(payload))
	w.reserveHeader()
	w.uint64(seqNo)
	w.bytes(payload)
	w.patchHeader(uint16(8+len(payload)), TemplateApplication)
	return w.buf, nil
}

func (messenger) Decode(raw []byte) (api.SessionMessage, error) {
	hdr, err := readHeader(raw)
	if err != nil {
		return api.SessionMessage{}, err
	}
	r := newReader(raw[HeaderLen:])

	switch hdr.TemplateID {
	case TemplateNegotiationResponse:
		var sid [16]byte
		copy(sid[:], r.bytes(16))
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageNegotiationResponse, SessionID: sid}, nil

	case TemplateEstablishmentAck:
		var sid [16]byte
		copy(sid[:], r.bytes(16))
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageEstablishmentAck, SessionID: sid}, nil

	case TemplateTerminate:
		var sid [16]byte
		copy(sid[:], r.bytes(16))
		reason := r.string()
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageTerminate, SessionID: sid, Reason: reason}, nil

	case TemplateSequence:
		seqNo := r.uint64()
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageSequence, SeqNo: seqNo}, nil

	case TemplateRetransmitRequest:
		from := r.uint64()
		to := r.uint64()
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageRetransmitRequest, FromSeqNo: from, ToSeqNo: to}, nil

	case TemplateApplication:
		seqNo := r.uint64()
		payload := r.rest()
		if r.err != nil {
			return api.SessionMessage{}, r.err
		}
		return api.SessionMessage{Type: api.SessionMessageApplication, SeqNo: seqNo, Payload: payload}, nil

	default:
		return api.SessionMessage{}, api.ErrUnknownTemplate
	}
}

var _ api.SessionMessenger = messenger{}
