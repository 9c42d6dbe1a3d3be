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

import "github.com/nabbar/uvhttpd/errors"

const (
	ErrorHandshakeMissingKey errors.CodeError = iota + errors.MinPkgWebsocket
	ErrorHandshakeBadVersion
	ErrorHandshakeNotUpgrade
	ErrorFrameTooShort
	ErrorFrameTooLarge
	ErrorMessageTooLarge
	ErrorControlFrameInvalid
	ErrorFragmentationInvalid
	ErrorUnauthorized
	ErrorFrameNotMasked
	ErrorCallbackFailed
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorHandshakeMissingKey)
	errors.RegisterIdFctMessage(ErrorHandshakeMissingKey, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorHandshakeMissingKey:
		return "websocket: Sec-WebSocket-Key header is missing"
	case ErrorHandshakeBadVersion:
		return "websocket: Sec-WebSocket-Version header is missing or not 13"
	case ErrorHandshakeNotUpgrade:
		return "websocket: request is not a valid Upgrade: websocket request"
	case ErrorFrameTooShort:
		return "websocket: buffer does not yet hold a full frame header"
	case ErrorFrameTooLarge:
		return "websocket: frame exceeds max_frame_size"
	case ErrorMessageTooLarge:
		return "websocket: assembled message exceeds max_message_size"
	case ErrorControlFrameInvalid:
		return "websocket: control frame violates size or fragmentation rules"
	case ErrorFragmentationInvalid:
		return "websocket: invalid continuation/fragmentation sequence"
	case ErrorUnauthorized:
		return "websocket: peer failed path authorization"
	case ErrorFrameNotMasked:
		return "websocket: client frame is not masked"
	case ErrorCallbackFailed:
		return "websocket: message callback returned an error"
	}

	return ""
}
