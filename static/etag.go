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
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// generateETag derives a quoted, deterministic ETag from (mtime, size):
// two calls with identical inputs always produce byte-identical output.
func generateETag(mtime time.Time, size int64) string {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%d", mtime.UnixNano(), size)
	return fmt.Sprintf("%q", fmt.Sprintf("%x", h.Sum64()))
}

// etagMatches reports whether candidate (an If-None-Match header value,
// which may be "*" or a comma-separated list of quoted ETags) matches etag.
func etagMatches(candidate, etag string) bool {
	if candidate == "*" {
		return true
	}
	for _, c := range strings.Split(candidate, ",") {
		if strings.TrimSpace(c) == etag {
			return true
		}
	}
	return false
}
