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

package static

import (
	"strconv"
	"strings"
)

// byteRange is an inclusive [start, end] span into a resource's bytes.
type byteRange struct {
	start, end int64
}

// parseRange parses a Range header value against a resource of size bytes.
// present reports whether header named a byte-range at all (an absent or
// unrecognised header falls back to serving the whole resource); when
// present, satisfiable reports whether r is usable. Per spec §6 ("single
// range; multi-range out of scope"), a header naming more than one range is
// treated as present-but-unsatisfiable (416), not expanded.
func parseRange(header string, size int64) (r byteRange, present bool, satisfiable bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, false, false
	}

	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return byteRange{}, true, false
	}

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, false, false
	}

	startStr, endStr := spec[:dash], spec[dash+1:]

	var start, end int64
	var err error

	switch {
	case startStr == "" && endStr == "":
		return byteRange{}, false, false

	case startStr == "":
		// Suffix range: the last N bytes of the resource.
		n, e := strconv.ParseInt(endStr, 10, 64)
		if e != nil || n <= 0 {
			return byteRange{}, true, false
		}
		if n > size {
			n = size
		}
		start = size - n
		end = size - 1

	case endStr == "":
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return byteRange{}, true, false
		}
		end = size - 1

	default:
		start, err = strconv.ParseInt(startStr, 10, 64)
		if err != nil || start < 0 {
			return byteRange{}, true, false
		}
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return byteRange{}, true, false
		}
		if end > size-1 {
			end = size - 1
		}
	}

	if size == 0 || start >= size {
		return byteRange{}, true, false
	}

	return byteRange{start: start, end: end}, true, true
}

// contentRangeHeader renders the Content-Range header value for a satisfiable
// range over a resource of the given total size.
func contentRangeHeader(r byteRange, size int64) string {
	return "bytes " + strconv.FormatInt(r.start, 10) + "-" + strconv.FormatInt(r.end, 10) + "/" + strconv.FormatInt(size, 10)
}
