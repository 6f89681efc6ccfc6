// File: codec/sbe/response.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Read-only response views (§3, §4.3): valid only for the duration of
// the dispatch callback that produced raw; no retention across calls.

package sbe

import (
	"github.com/momentics/fixp-ws-client/api"
)

type responseFactory struct{}

// NewResponseFactory returns the default response-view wrapper.
func NewResponseFactory() api.ResponseFactory {
	return responseFactory{}
}

func (responseFactory) Wrap(raw []byte) (api.Message, error) {
	hdr, err := readHeader(raw)
	if err != nil {
		return nil, err
	}
	r := newReader(raw[HeaderLen:])

	switch hdr.TemplateID {
	case TemplateExecutionReport:
		v := &executionReport{
			seqNo:     r.uint64(),
			clOrdID:   r.string(),
			orderID:   r.string(),
			execType:  r.byte(),
			ordStatus: r.byte(),
			symbol:    r.string(),
			lastQty:   r.float64(),
			lastPx:    r.float64(),
		}
		if r.err != nil {
			return nil, r.err
		}
		return v, nil

	case TemplateOrderCancelReject:
		v := &orderCancelReject{
			seqNo:        r.uint64(),
			clOrdID:      r.string(),
			origClOrdID:  r.string(),
			ordStatus:    r.byte(),
			cxlRejReason: int32(r.uint64()),
			text:         r.string(),
		}
		if r.err != nil {
			return nil, r.err
		}
		return v, nil

	default:
		return nil, api.ErrUnknownTemplate
	}
}

type executionReport struct {
	seqNo     uint64
	clOrdID   string
	orderID   string
	execType  byte
	ordStatus byte
	symbol    string
	lastQty   float64
	lastPx    float64
}

func (e *executionReport) Type() api.MessageType { return api.MessageExecutionReport }
func (e *executionReport) SeqNo() uint64          { return e.seqNo }
func (e *executionReport) ClOrdID() string        { return e.clOrdID }
func (e *executionReport) OrderID() string        { return e.orderID }
func (e *executionReport) ExecType() byte         { return e.execType }
func (e *executionReport) OrdStatus() byte        { return e.ordStatus }
func (e *executionReport) Symbol() string         { return e.symbol }
func (e *executionReport) LastQty() float64       { return e.lastQty }
func (e *executionReport) LastPx() float64        { return e.lastPx }

var _ api.ExecutionReport = (*executionReport)(nil)

type orderCancelReject struct {
	seqNo        uint64
	clOrdID      string
	origClOrdID  string
	ordStatus    byte
	cxlRejReason int32
	text         string
}

func (o *orderCancelReject) Type() api.MessageType { return api.MessageOrderCancelReject }
func (o *orderCancelReject) SeqNo() uint64          { return o.seqNo }
func (o *orderCancelReject) ClOrdID() string        { return o.clOrdID }
func (o *orderCancelReject) OrigClOrdID() string    { return o.origClOrdID }
func (o *orderCancelReject) OrdStatus() byte        { return o.ordStatus }
func (o *orderCancelReject) CxlRejReason() int32    { return o.cxlRejReason }
func (o *orderCancelReject) Text() string           { return o.text }

var _ api.OrderCancelReject = (*orderCancelReject)(nil)
