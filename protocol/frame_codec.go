// File: protocol/frame_codec.go
// Package protocol implements a frame codec with frame size enforcement;
// decoded payloads are copied out of the input slice.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Implements WebSocket frame encoding/decoding over byte slices so the
// transport can accumulate partial TCP reads without blocking per-frame.

package protocol

import (
	"encoding/binary"
	"errors"
)

// MaxFramePayload caps a single frame's payload to bound memory use
// against a malicious or misbehaving peer.
const MaxFramePayload = 1 << 20 // 1 MiB

// DecodeFrameFromBytes parses one frame from the head of raw. If raw
// does not yet hold a complete frame it returns (nil, 0, nil) so the
// caller can read more and retry; consumed is the number of bytes to
// advance past the decoded frame on success.
func DecodeFrameFromBytes(raw []byte) (frame *WSFrame, consumed int, err error) {
	if len(raw) < 2 {
		return nil, 0, nil
	}
	fin := raw[0]&FinBit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := int64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil
		}
		length = int64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil
		}
		length = int64(binary.BigEndian.Uint64(raw[offset:]))
		offset += 8
	}

	if length > MaxFramePayload {
		return nil, 0, errors.New("frame payload exceeds maximum allowed size")
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	total := offset + int(length)
	if len(raw) < total {
		return nil, 0, nil
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:total])
	if masked {
		unmaskInPlace(payload, maskKey)
	}

	return &WSFrame{
		IsFinal:    fin,
		Opcode:     opcode,
		Masked:     masked,
		PayloadLen: length,
		MaskKey:    maskKey,
		Payload:    payload,
	}, total, nil
}

// EncodeFrameToBytes serializes a client frame, always masked per
// RFC6455 section 5.1.
func EncodeFrameToBytes(f *WSFrame) ([]byte, error) {
	if f.PayloadLen > MaxFramePayload {
		return nil, errors.New("frame payload exceeds maximum allowed size")
	}
	buf := make([]byte, 14+int(f.PayloadLen))
	n, err := EncodeFrame(buf, f.Opcode, f.Payload, true)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}
