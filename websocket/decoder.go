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

// MessageCallbacks are fired by Decoder.Feed as complete application
// messages and control frames are recovered from the wire. Byte slices
// alias the Decoder's internal buffer and are only valid for the
// duration of the call; a callback that needs to keep the data must copy
// it. A non-nil return aborts Feed, wrapped in ErrorCallbackFailed.
type MessageCallbacks struct {
	OnMessage func(opcode Opcode, payload []byte) error
	OnPing    func(payload []byte) error
	OnPong    func(payload []byte) error
	OnClose   func(code int, reason string) error
}

// Decoder reassembles a byte stream of server-bound frames into complete
// messages, enforcing spec §4.6's fragmentation and size rules: a
// fragmented text/binary message may have control frames interleaved
// between its continuation frames, but never another text/binary frame;
// exceeding MaxMessageSize while assembling is reported so the caller can
// close with 1009.
type Decoder struct {
	cfg Config
	cb  MessageCallbacks

	buf []byte

	assembling bool
	asmOpcode  Opcode
	asmData    []byte
}

// NewDecoder returns a Decoder bound to cb, with cfg's zero fields
// replaced by their package defaults.
func NewDecoder(cfg Config, cb MessageCallbacks) *Decoder {
	return &Decoder{cfg: cfg.normalised(), cb: cb}
}

// Feed appends data to the decoder's buffer and processes every complete
// frame it now holds, firing callbacks as messages complete. It returns
// the first error encountered; per RFC 6455 §7.1.7, the caller must close
// the connection with the appropriate close code on any error.
func (d *Decoder) Feed(data []byte) liberr.Error {
	d.buf = append(d.buf, data...)

	for {
		frame, n, ok, err := ParseFrameHeader(d.buf, d.cfg.MaxFrameSize)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		if !frame.Masked {
			return ErrorFrameNotMasked.Error(nil)
		}

		d.buf = d.buf[n:]

		if ferr := d.process(frame); ferr != nil {
			return ferr
		}
	}

	return nil
}

func (d *Decoder) process(f Frame) liberr.Error {
	if f.IsControl() {
		return d.processControl(f)
	}

	switch f.Opcode {
	case OpcodeContinuation:
		if !d.assembling {
			return ErrorFragmentationInvalid.Error(nil)
		}
		return d.appendFragment(f.Payload, f.Fin)

	case OpcodeText, OpcodeBinary:
		if d.assembling {
			return ErrorFragmentationInvalid.Error(nil)
		}
		if f.Fin {
			return d.deliver(f.Opcode, f.Payload)
		}
		d.assembling = true
		d.asmOpcode = f.Opcode
		d.asmData = append(d.asmData[:0], f.Payload...)
		return nil

	default:
		return ErrorFragmentationInvalid.Error(nil)
	}
}

func (d *Decoder) appendFragment(payload []byte, fin bool) liberr.Error {
	if int64(len(d.asmData)+len(payload)) > d.cfg.MaxMessageSize {
		d.assembling = false
		d.asmData = d.asmData[:0]
		return ErrorMessageTooLarge.Error(nil)
	}
	d.asmData = append(d.asmData, payload...)

	if !fin {
		return nil
	}

	opcode, data := d.asmOpcode, d.asmData
	d.assembling = false
	d.asmData = nil
	return d.deliver(opcode, data)
}

func (d *Decoder) deliver(opcode Opcode, payload []byte) liberr.Error {
	if int64(len(payload)) > d.cfg.MaxMessageSize {
		return ErrorMessageTooLarge.Error(nil)
	}
	if d.cb.OnMessage == nil {
		return nil
	}
	if err := d.cb.OnMessage(opcode, payload); err != nil {
		return ErrorCallbackFailed.Error(err)
	}
	return nil
}

func (d *Decoder) processControl(f Frame) liberr.Error {
	switch f.Opcode {
	case OpcodePing:
		if d.cb.OnPing == nil {
			return nil
		}
		if err := d.cb.OnPing(f.Payload); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	case OpcodePong:
		if d.cb.OnPong == nil {
			return nil
		}
		if err := d.cb.OnPong(f.Payload); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	case OpcodeClose:
		code, reason := decodeClosePayload(f.Payload)
		if d.cb.OnClose == nil {
			return nil
		}
		if err := d.cb.OnClose(code, reason); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	}
	return nil
}

func decodeClosePayload(payload []byte) (int, string) {
	if len(payload) < 2 {
		return CloseNormal, ""
	}
	return int(binary.BigEndian.Uint16(payload[:2])), string(payload[2:])
}

// BuildClosePayload encodes a close code and reason as an RFC 6455 §5.5.1
// close-frame payload.
func BuildClosePayload(code int, reason string) []byte {
	out := make([]byte, 2+len(reason))
	binary.BigEndian.PutUint16(out[:2], uint16(code))
	copy(out[2:], reason)
	return out
}
