// File: codec/sbe/wire.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Bounded, allocation-light primitive encode/decode, generalized from
// protocol/frame_codec.go's explicit incomplete/too-large handling
// style but applied to the fixed 8-byte SBE header and its
// little-endian scalar fields rather than the WS frame bit layout.

package sbe

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/momentics/fixp-ws-client/api"
)

var errShortBuffer = fmt.Errorf("sbe: buffer too short")

func putHeader(dst []byte, blockLength, templateID uint16) {
	binary.LittleEndian.PutUint16(dst[0:2], blockLength)
	binary.LittleEndian.PutUint16(dst[2:4], templateID)
	binary.LittleEndian.PutUint16(dst[4:6], SchemaID)
	binary.LittleEndian.PutUint16(dst[6:8], Version)
}

func readHeader(raw []byte) (api.MessageHeader, error) {
	if len(raw) < HeaderLen {
		return api.MessageHeader{}, errShortBuffer
	}
	hdr := api.MessageHeader{
		BlockLength: binary.LittleEndian.Uint16(raw[0:2]),
		TemplateID:  binary.LittleEndian.Uint16(raw[2:4]),
		SchemaID:    binary.LittleEndian.Uint16(raw[4:6]),
		Version:     binary.LittleEndian.Uint16(raw[6:8]),
	}
	if hdr.SchemaID != SchemaID {
		return api.MessageHeader{}, api.ErrUnknownSchema
	}
	return hdr, nil
}

// writer accumulates fixed and variable-length fields into a growing
// buffer. Variable-length strings are length-prefixed with a u16.
type writer struct {
	buf []byte
}

func newWriter(cap int) *writer {
	return &writer{buf: make([]byte, 0, cap)}
}

// reserveHeader grows buf by HeaderLen zeroed bytes so header fields
// can be patched in after the body is known, via patchHeader.
func (w *writer) reserveHeader() {
	w.buf = w.buf[:HeaderLen]
}

func (w *writer) patchHeader(blockLength, templateID uint16) {
	putHeader(w.buf[:HeaderLen], blockLength, templateID)
}

func (w *writer) uint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) uint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) float64(v float64) {
	w.uint64(math.Float64bits(v))
}

func (w *writer) byte(v byte) {
	w.buf = append(w.buf, v)
}

func (w *writer) bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) string(s string) {
	if len(s) > 0xFFFF {
		s = s[:0xFFFF]
	}
	w.uint16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// reader walks a decoded payload left to right, erroring on
// out-of-bounds access rather than panicking.
type reader struct {
	buf []byte
	pos int
	err error
}

func newReader(buf []byte) *reader {
	return &reader{buf: buf}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.buf) {
		r.err = errShortBuffer
		return false
	}
	return true
}

func (r *reader) uint16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v
}

func (r *reader) uint64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return v
}

func (r *reader) float64() float64 {
	return math.Float64frombits(r.uint64())
}

func (r *reader) byte() byte {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v
}

func (r *reader) string() string {
	n := int(r.uint16())
	b := r.bytes(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) rest() []byte {
	if r.err != nil || r.pos > len(r.buf) {
		return nil
	}
	return r.buf[r.pos:]
}
