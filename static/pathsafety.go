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
	"path/filepath"
	"strings"

	liberr "github.com/nabbar/uvhttpd/errors"
)

// resolveSafePath joins root and requestPath with a canonicalising clean,
// then refuses any result not strictly within root. A requestPath holding
// a ".." segment, a "//" or a NUL byte is refused outright; a leading "/"
// is resolved under root.
func resolveSafePath(root, requestPath string) (string, liberr.Error) {
	if strings.Contains(requestPath, "\x00") || strings.Contains(requestPath, "//") {
		return "", ErrorPathTraversal.Error(nil)
	}
	for _, seg := range strings.Split(requestPath, "/") {
		if seg == ".." {
			return "", ErrorPathTraversal.Error(nil)
		}
	}

	cleanRoot := filepath.Clean(root)
	joined := filepath.Join(cleanRoot, filepath.Clean("/"+requestPath))

	rel, err := filepath.Rel(cleanRoot, joined)
	if err != nil {
		return "", ErrorPathTraversal.Error(nil)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrorPathTraversal.Error(nil)
	}

	return joined, nil
}
