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
	"strings"

	liberr "github.com/nabbar/uvhttpd/errors"
)

const (
	// MaxHeaders is the fixed capacity of a Headers table.
	MaxHeaders = 32
	// MaxHeaderNameLen is the maximum accepted byte length of a header name.
	MaxHeaderNameLen = 255
	// MaxHeaderValueLen is the maximum accepted byte length of a header value.
	MaxHeaderValueLen = 4095
)

type headerEntry struct {
	name  string
	value string
}

// Headers is a fixed-capacity, case-insensitive ordered header table. It is
// reset (not reallocated) between keep-alive requests on the same
// connection.
type Headers struct {
	entries [MaxHeaders]headerEntry
	count   int
}

// validHeaderName reports whether name matches [A-Za-z0-9-]+ and fits
// within MaxHeaderNameLen.
func validHeaderName(name string) bool {
	if name == "" || len(name) > MaxHeaderNameLen {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return false
		}
	}
	return true
}

// validHeaderValue rejects CR, LF, and control bytes below 0x20 other than
// TAB, and enforces MaxHeaderValueLen.
func validHeaderValue(value string) bool {
	if len(value) > MaxHeaderValueLen {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c == '\r' || c == '\n' {
			return false
		}
		if c < 0x20 && c != '\t' {
			return false
		}
	}
	return true
}

func (h *Headers) indexOf(name string) int {
	for i := 0; i < h.count; i++ {
		if strings.EqualFold(h.entries[i].name, name) {
			return i
		}
	}
	return -1
}

// Len returns the number of headers currently stored.
func (h *Headers) Len() int {
	return h.count
}

// Get returns the value of the first header matching name, case-insensitively.
func (h *Headers) Get(name string) (string, bool) {
	if i := h.indexOf(name); i >= 0 {
		return h.entries[i].value, true
	}
	return "", false
}

// Set validates name and value, then overwrites the existing entry for name
// (case-insensitively) or appends a new one. It fails with ErrorHeaderTableFull
// once the table is at capacity and name is not already present.
func (h *Headers) Set(name, value string) liberr.Error {
	if !validHeaderName(name) {
		return ErrorHeaderNameInvalid.Error(nil)
	}
	if !validHeaderValue(value) {
		return ErrorHeaderValueInvalid.Error(nil)
	}

	if i := h.indexOf(name); i >= 0 {
		h.entries[i].value = value
		return nil
	}

	if h.count >= MaxHeaders {
		return ErrorHeaderTableFull.Error(nil)
	}

	h.entries[h.count] = headerEntry{name: name, value: value}
	h.count++
	return nil
}

// Add validates name and value, then always appends a new entry, preserving
// duplicate header lines as distinct entries (needed while the parser is
// still accumulating headers across buffer boundaries).
func (h *Headers) Add(name, value string) liberr.Error {
	if !validHeaderName(name) {
		return ErrorHeaderNameInvalid.Error(nil)
	}
	if !validHeaderValue(value) {
		return ErrorHeaderValueInvalid.Error(nil)
	}
	if h.count >= MaxHeaders {
		return ErrorHeaderTableFull.Error(nil)
	}

	h.entries[h.count] = headerEntry{name: name, value: value}
	h.count++
	return nil
}

// Del removes every entry matching name, case-insensitively.
func (h *Headers) Del(name string) {
	out := h.entries[:0:0]
	for i := 0; i < h.count; i++ {
		if !strings.EqualFold(h.entries[i].name, name) {
			out = append(out, h.entries[i])
		}
	}
	h.count = copy(h.entries[:], out)
}

// Reset clears every entry without reallocating the backing array.
func (h *Headers) Reset() {
	for i := 0; i < h.count; i++ {
		h.entries[i] = headerEntry{}
	}
	h.count = 0
}

// Range calls fn for every header in insertion order, stopping early if fn
// returns false.
func (h *Headers) Range(fn func(name, value string) bool) {
	for i := 0; i < h.count; i++ {
		if !fn(h.entries[i].name, h.entries[i].value) {
			return
		}
	}
}
