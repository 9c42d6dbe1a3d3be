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

// Package message holds the Request/Response data model: fixed-capacity
// header and parameter tables, a body buffer bounded by a configurable
// ceiling, and the status-line reason table. It has no knowledge of sockets,
// parsing, or routing; the parser driver and connection FSM write into it,
// the router reads from it.
package message

import (
	liberr "github.com/nabbar/uvhttpd/errors"
)

// DefaultMaxBodySize is the body ceiling applied when a Request is reset
// without an explicit override (spec: 1 MiB default).
const DefaultMaxBodySize = 1024 * 1024

// MaxURLSize is the hard ceiling on the raw URL length.
const MaxURLSize = 2048

// MaxParams is the fixed capacity of the captured path-parameter table.
const MaxParams = 16

type param struct {
	name  string
	value string
}

// Request is the per-connection request object: created when parsing
// begins, reset (not reallocated) between keep-alive requests, and
// destroyed with the connection.
type Request struct {
	Method Method
	Path   string
	Query  string

	Headers Headers
	Body    []byte

	maxBodySize int64
	params      [MaxParams]param
	paramCount  int
}

// NewRequest returns a Request with the given body-size ceiling; a
// non-positive value falls back to DefaultMaxBodySize.
func NewRequest(maxBodySize int64) *Request {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Request{maxBodySize: maxBodySize}
}

// Reset clears the request for reuse on the same connection (keep-alive),
// preserving the configured body-size ceiling.
func (r *Request) Reset() {
	r.Method = MethodUnknown
	r.Path = ""
	r.Query = ""
	r.Headers.Reset()
	r.Body = r.Body[:0]
	r.paramCount = 0
	for i := range r.params {
		r.params[i] = param{}
	}
}

// SetPath validates the candidate URL path against the safety rules (no
// `<>:"|?*`, no bare CR/LF) and the MaxURLSize ceiling, splitting off any
// query string.
func (r *Request) SetPath(rawURL string) liberr.Error {
	if len(rawURL) > MaxURLSize {
		return ErrorURLTooLong.Error(nil)
	}
	path, query := rawURL, ""
	if i := indexByte(rawURL, '?'); i >= 0 {
		path = rawURL[:i]
		query = rawURL[i+1:]
	}
	if !safeURL(path) {
		return ErrorURLUnsafe.Error(nil)
	}

	r.Path = path
	r.Query = query
	return nil
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func safeURL(path string) bool {
	for i := 0; i < len(path); i++ {
		switch path[i] {
		case '<', '>', ':', '"', '|', '?', '*', '\r', '\n':
			return false
		}
	}
	return true
}

// AppendBody grows the body buffer by chunk, refusing any growth that would
// exceed the configured max-body-size ceiling.
func (r *Request) AppendBody(chunk []byte) liberr.Error {
	if int64(len(r.Body)+len(chunk)) > r.maxBodySize {
		return ErrorBodyTooLarge.Error(nil)
	}
	r.Body = append(r.Body, chunk...)
	return nil
}

// SetParam records a captured path parameter. It fails with
// ErrorParamTableFull once MaxParams entries are already recorded.
func (r *Request) SetParam(name, value string) liberr.Error {
	if r.paramCount >= MaxParams {
		return ErrorParamTableFull.Error(nil)
	}
	r.params[r.paramCount] = param{name: name, value: value}
	r.paramCount++
	return nil
}

// Param returns the value of a captured path parameter by name.
func (r *Request) Param(name string) (string, bool) {
	for i := 0; i < r.paramCount; i++ {
		if r.params[i].name == name {
			return r.params[i].value, true
		}
	}
	return "", false
}

// ParamCount returns the number of captured path parameters.
func (r *Request) ParamCount() int {
	return r.paramCount
}

// KeepAlive reports whether this request, given its declared HTTP minor
// version and Connection header, should keep the underlying TCP connection
// open for a subsequent request (spec §4.3).
func (r *Request) KeepAlive(httpMinorVersion int) bool {
	conn, _ := r.Headers.Get("Connection")
	switch httpMinorVersion {
	case 1:
		return !equalFoldASCII(conn, "close")
	default:
		return equalFoldASCII(conn, "keep-alive")
	}
}

func equalFoldASCII(s, t string) bool {
	if len(s) != len(t) {
		return false
	}
	for i := 0; i < len(s); i++ {
		a, b := s[i], t[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
