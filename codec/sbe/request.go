// File: codec/sbe/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread-affine request builders (§3, §4.3): safe to create
// concurrently, but a built instance must be populated entirely on
// its creating goroutine. Build encodes into a pool-drawn api.Buffer.

package sbe

import (
	"github.com/momentics/fixp-ws-client/api"
)

type requestFactory struct {
	pool api.BufferPool
}

// NewRequestFactory returns a factory drawing built frames from pool.
func NewRequestFactory(pool api.BufferPool) api.RequestFactory {
	return &requestFactory{pool: pool}
}

func (f *requestFactory) NewOrderSingle() api.MutableNewOrderSingle {
	return &newOrderSingle{pool: f.pool}
}

func (f *requestFactory) OrderCancelRequest() api.MutableOrderCancelRequest {
	return &orderCancelRequest{pool: f.pool}
}

type newOrderSingle struct {
	pool    api.BufferPool
	clOrdID string
	symbol  string
	side    api.Side
	qty     float64
	px      float64
	ordType api.OrdType
}

func (o *newOrderSingle) SetClOrdID(id string) api.MutableNewOrderSingle   { o.clOrdID = id; return o }
func (o *newOrderSingle) SetSymbol(s string) api.MutableNewOrderSingle     { o.symbol = s; return o }
func (o *newOrderSingle) SetSide(s api.Side) api.MutableNewOrderSingle     { o.side = s; return o }
func (o *newOrderSingle) SetOrderQty(q float64) api.MutableNewOrderSingle  { o.qty = q; return o }
func (o *newOrderSingle) SetPrice(p float64) api.MutableNewOrderSingle     { o.px = p; return o }
func (o *newOrderSingle) SetOrdType(t api.OrdType) api.MutableNewOrderSingle {
	o.ordType = t
	return o
}

func (o *newOrderSingle) Build() (api.Buffer, error) {
	w := newWriter(HeaderLen + 2 + len(o.clOrdID) + 2 + len(o.symbol) + 1 + 8 + 8 + 1)
	w.reserveHeader()
	w.string(o.clOrdID)
	w.string(o.symbol)
	w.byte(byte(o.side))
	w.float64(o.qty)
	w.float64(o.px)
	w.byte(byte(o.ordType))
	w.patchHeader(uint16(len(w.buf)-HeaderLen), TemplateNewOrderSingle)

	return fillBuffer(o.pool, w.buf), nil
}

type orderCancelRequest struct {
	pool        api.BufferPool
	clOrdID     string
	origClOrdID string
	symbol      string
	side        api.Side
}

func (o *orderCancelRequest) SetClOrdID(id string) api.MutableOrderCancelRequest {
	o.clOrdID = id
	return o
}
func (o *orderCancelRequest) SetOrigClOrdID(id string) api.MutableOrderCancelRequest {
	o.origClOrdID = id
	return o
}
func (o *orderCancelRequest) SetSymbol(s string) api.MutableOrderCancelRequest {
	o.symbol = s
	return o
}
func (o *orderCancelRequest) SetSide(s api.Side) api.MutableOrderCancelRequest {
	o.side = s
	return o
}

func (o *orderCancelRequest) Build() (api.Buffer, error) {
	w := newWriter(HeaderLen + 2 + len(o.clOrdID) + 2 + len(o.origClOrdID) + 2 + len(o.symbol) + 1)
	w.reserveHeader()
	w.string(o.clOrdID)
	w.string(o.origClOrdID)
	w.string(o.symbol)
	w.byte(byte(o.side))
	w.patchHeader(uint16(len(w.buf)-HeaderLen), TemplateOrderCancelRequest)

	return fillBuffer(o.pool, w.buf), nil
}

// fillBuffer draws a pool region sized to encoded and copies the
// frame in, so the caller always transfers a pool-owned Buffer to
// Trader.Send regardless of whether the pool rounds sizes up.
func fillBuffer(pool api.BufferPool, encoded []byte) api.Buffer {
	buf := pool.Get(len(encoded))
	copy(buf.Bytes(), encoded)
	return buf.Slice(0, len(encoded))
}
