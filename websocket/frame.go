/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package websocket

import (
	"encoding/binary"

	liberr "github.com/nabbar/uvhttpd/errors"
)

// Opcode is the RFC 6455 §5.2 frame opcode.
type Opcode byte

const (
	OpcodeContinuation Opcode = 0x0
	OpcodeText         Opcode = 0x1
	OpcodeBinary       Opcode = 0x2
	OpcodeClose        Opcode = 0x8
	OpcodePing         Opcode = 0x9
	OpcodePong         Opcode = 0xA
)

// Close codes (RFC 6455 §7.4) this engine emits; spec §4.9/§7 additionally
// maps a handshake authorization failure to 4403 and an internal failure
// to 4500, both outside the RFC-reserved range but accepted by this engine
// on the wire the same way.
const (
	CloseNormal          = 1000
	CloseGoingAway       = 1001
	CloseProtocolError   = 1002
	CloseMessageTooBig   = 1009
	CloseInternalError   = 1011
	CloseUnauthorized    = 4403
	CloseInternalFailure = 4500
)

// maxControlPayload is the RFC 6455 §5.5 ceiling on control-frame payload
// length; control frames may not be fragmented.
const maxControlPayload = 125

// Frame is a single decoded WebSocket frame.
type Frame struct {
	Fin        bool
	Opcode     Opcode
	Masked     bool
	MaskingKey [4]byte
	Payload    []byte
}

// IsControl reports whether f's opcode is one of the RFC 6455 control
// opcodes (close, ping, pong).
func (f Frame) IsControl() bool {
	return f.Opcode == OpcodeClose || f.Opcode == OpcodePing || f.Opcode == OpcodePong
}

// ParseFrameHeader decodes one whole frame from data (header, masking key
// and unmasked payload), returning the frame, the total number of bytes
// the frame (header, masking key and payload) occupied, and whether data
// held the complete frame. maxFrameSize bounds the decoded
// payload length.
func ParseFrameHeader(data []byte, maxFrameSize int64) (header Frame, headerLen int, ok bool, err liberr.Error) {
	if len(data) < 2 {
		return Frame{}, 0, false, nil
	}

	b0, b1 := data[0], data[1]

	header.Fin = b0&0x80 != 0
	header.Opcode = Opcode(b0 & 0x0F)
	header.Masked = b1&0x80 != 0

	payloadLen := int64(b1 & 0x7F)
	offset := 2

	switch payloadLen {
	case 126:
		if len(data) < offset+2 {
			return Frame{}, 0, false, nil
		}
		payloadLen = int64(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
	case 127:
		if len(data) < offset+8 {
			return Frame{}, 0, false, nil
		}
		payloadLen = int64(binary.BigEndian.Uint64(data[offset:]))
		offset += 8
	}

	if payloadLen > maxFrameSize {
		return Frame{}, 0, false, ErrorFrameTooLarge.Error(nil)
	}

	if header.IsControl() {
		if payloadLen > maxControlPayload || !header.Fin {
			return Frame{}, 0, false, ErrorControlFrameInvalid.Error(nil)
		}
	}

	if header.Masked {
		if len(data) < offset+4 {
			return Frame{}, 0, false, nil
		}
		copy(header.MaskingKey[:], data[offset:offset+4])
		offset += 4
	}

	need := offset + int(payloadLen)
	if len(data) < need {
		return Frame{}, 0, false, nil
	}

	header.Payload = make([]byte, payloadLen)
	copy(header.Payload, data[offset:need])
	if header.Masked {
		ApplyMask(header.Payload, header.MaskingKey)
	}

	return header, need, true, nil
}

// ApplyMask XORs data in place with key, cycling key every 4 bytes
// (RFC 6455 §5.3). Applying it twice with the same key is its own
// inverse, which is how the client-side masking/server-side unmasking
// pair is implemented.
func ApplyMask(data []byte, key [4]byte) {
	for i := range data {
		data[i] ^= key[i%4]
	}
}

// Build encodes f as wire bytes. f.Payload is always the plaintext
// application data; if f.Masked is set, Build masks a copy with
// f.MaskingKey before writing it, so ParseFrameHeader(Build(f)) yields f
// back unchanged (spec §8's round-trip property) without the caller
// having to pre-mask anything.
func Build(f Frame) []byte {
	var first byte
	if f.Fin {
		first |= 0x80
	}
	first |= byte(f.Opcode) & 0x0F

	payloadLen := len(f.Payload)

	var out []byte
	switch {
	case payloadLen < 126:
		out = make([]byte, 2, 2+4+payloadLen)
		out[0] = first
		out[1] = byte(payloadLen)
	case payloadLen <= 0xFFFF:
		out = make([]byte, 4, 4+4+payloadLen)
		out[0] = first
		out[1] = 126
		binary.BigEndian.PutUint16(out[2:], uint16(payloadLen))
	default:
		out = make([]byte, 10, 10+4+payloadLen)
		out[0] = first
		out[1] = 127
		binary.BigEndian.PutUint64(out[2:], uint64(payloadLen))
	}

	payload := f.Payload
	if f.Masked {
		out[1] |= 0x80
		out = append(out, f.MaskingKey[:]...)
		payload = make([]byte, len(f.Payload))
		copy(payload, f.Payload)
		ApplyMask(payload, f.MaskingKey)
	}

	out = append(out, payload...)
	return out
}
