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
	"crypto/sha1"
	"encoding/base64"
	"strings"

	liberr "github.com/nabbar/uvhttpd/errors"
	"github.com/nabbar/uvhttpd/message"
)

// handshakeGUID is the RFC 6455 §1.3 magic string concatenated onto the
// client's Sec-WebSocket-Key before hashing.
const handshakeGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// AcceptKey computes the Sec-WebSocket-Accept value for clientKey (RFC
// 6455 §1.3): base64(sha1(clientKey + handshakeGUID)).
func AcceptKey(clientKey string) string {
	h := sha1.New()
	_, _ = h.Write([]byte(clientKey))
	_, _ = h.Write([]byte(handshakeGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Handshake validates req as a WebSocket upgrade request and, on success,
// writes the 101 Switching Protocols response into resp. It checks Upgrade,
// Connection, Sec-WebSocket-Version and Sec-WebSocket-Key per spec; any
// missing or malformed header is reported so the caller can respond 400.
func Handshake(req *message.Request, resp *message.Response) liberr.Error {
	if !IsUpgradeRequest(req) {
		return ErrorHandshakeNotUpgrade.Error(nil)
	}

	if version, ok := req.Headers.Get("Sec-WebSocket-Version"); !ok || version != "13" {
		return ErrorHandshakeBadVersion.Error(nil)
	}

	key, ok := req.Headers.Get("Sec-WebSocket-Key")
	if !ok || key == "" {
		return ErrorHandshakeMissingKey.Error(nil)
	}

	resp.Status = 101
	_ = resp.Headers.Set("Upgrade", "websocket")
	_ = resp.Headers.Set("Connection", "Upgrade")
	_ = resp.Headers.Set("Sec-WebSocket-Accept", AcceptKey(key))
	return nil
}

// IsUpgradeRequest reports whether req carries the headers required to
// start a WebSocket handshake (Upgrade: websocket, Connection: Upgrade).
func IsUpgradeRequest(req *message.Request) bool {
	upgrade, ok := req.Headers.Get("Upgrade")
	if !ok || !strings.EqualFold(upgrade, "websocket") {
		return false
	}
	conn, ok := req.Headers.Get("Connection")
	if !ok {
		return false
	}
	return containsToken(conn, "upgrade")
}

// containsToken reports whether header (a comma-separated token list,
// spec §6) contains token case-insensitively.
func containsToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}
