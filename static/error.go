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

import "github.com/nabbar/uvhttpd/errors"

const (
	ErrorRootRequired errors.CodeError = iota + errors.MinPkgStatic
	ErrorRootNotDirectory
	ErrorPathTraversal
	ErrorFileNotFound
	ErrorNotRegularFile
	ErrorCacheInit
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorRootRequired)
	errors.RegisterIdFctMessage(ErrorRootRequired, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorRootRequired:
		return "static: root directory is required"
	case ErrorRootNotDirectory:
		return "static: root is not a directory"
	case ErrorPathTraversal:
		return "static: resolved path escapes the configured root"
	case ErrorFileNotFound:
		return "static: file not found"
	case ErrorNotRegularFile:
		return "static: path is not a regular file"
	case ErrorCacheInit:
		return "static: failed to initialise the file cache"
	}

	return ""
}
