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

package message

import (
	"strconv"
	"strings"
)

// reasonPhrases covers the status codes this module's components actually
// emit (spec §7); any other code in [100,599] still gets a status line,
// with reason "Unknown".
var reasonPhrases = map[int]string{
	100: "Continue",
	101: "Switching Protocols",
	200: "OK",
	204: "No Content",
	206: "Partial Content",
	301: "Moved Permanently",
	302: "Found",
	304: "Not Modified",
	400: "Bad Request",
	401: "Unauthorized",
	403: "Forbidden",
	404: "Not Found",
	405: "Method Not Allowed",
	413: "Payload Too Large",
	415: "Unsupported Media Type",
	429: "Too Many Requests",
	500: "Internal Server Error",
	501: "Not Implemented",
	503: "Service Unavailable",
}

// ReasonPhrase returns the reason phrase for code, or "Unknown" if this
// table has no entry for it.
func ReasonPhrase(code int) string {
	if r, ok := reasonPhrases[code]; ok {
		return r
	}
	return "Unknown"
}

// Response is the per-connection response object. Owned by the connection
// and cleaned up after the write completes.
type Response struct {
	Status  int
	Headers Headers
	Body    []byte

	headersSent bool
	finished    bool
}

// NewResponse returns a zero-value Response ready for a first use.
func NewResponse() *Response {
	return &Response{}
}

// Reset clears the response for reuse on the same connection (keep-alive).
func (r *Response) Reset() {
	r.Status = 0
	r.Headers.Reset()
	r.Body = r.Body[:0]
	r.headersSent = false
	r.finished = false
}

// HeadersSent reports whether the status line and headers have already
// been written to the transport.
func (r *Response) HeadersSent() bool {
	return r.headersSent
}

// Finished reports whether this response has completed: either a full HTTP
// response was enqueued for write, or the connection transitioned to
// CLOSING with an error.
func (r *Response) Finished() bool {
	return r.finished
}

// MarkFinished records that this response is done, regardless of outcome
// (written or abandoned on error).
func (r *Response) MarkFinished() {
	r.finished = true
}

// Build concats the status line, headers, and body into a single buffer
// suitable for one write to the transport. Build supplies whichever of
// Content-Type ("text/plain") and Content-Length (the actual body length)
// the caller did not set.
func (r *Response) Build() []byte {
	if _, ok := r.Headers.Get("Content-Type"); !ok {
		_ = r.Headers.Set("Content-Type", "text/plain")
	}
	if _, ok := r.Headers.Get("Content-Length"); !ok {
		_ = r.Headers.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	var b strings.Builder
	b.Grow(64 + r.Headers.Len()*48 + len(r.Body))

	b.WriteString("HTTP/1.1 ")
	b.WriteString(strconv.Itoa(r.Status))
	b.WriteByte(' ')
	b.WriteString(ReasonPhrase(r.Status))
	b.WriteString("\r\n")

	r.Headers.Range(func(name, value string) bool {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
		return true
	})
	b.WriteString("\r\n")

	out := make([]byte, 0, b.Len()+len(r.Body))
	out = append(out, b.String()...)
	out = append(out, r.Body...)

	r.headersSent = true
	return out
}
