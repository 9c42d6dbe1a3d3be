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

import "github.com/nabbar/uvhttpd/errors"

const (
	ErrorHeaderTableFull errors.CodeError = iota + errors.MinPkgMessage
	ErrorHeaderNameInvalid
	ErrorHeaderValueInvalid
	ErrorBodyTooLarge
	ErrorParamTableFull
	ErrorURLTooLong
	ErrorURLUnsafe
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorHeaderTableFull)
	errors.RegisterIdFctMessage(ErrorHeaderTableFull, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorHeaderTableFull:
		return "header table is full"
	case ErrorHeaderNameInvalid:
		return "header name contains an invalid character"
	case ErrorHeaderValueInvalid:
		return "header value contains a control character"
	case ErrorBodyTooLarge:
		return "body exceeds the configured size ceiling"
	case ErrorParamTableFull:
		return "path parameter table is full"
	case ErrorURLTooLong:
		return "url exceeds the maximum accepted length"
	case ErrorURLUnsafe:
		return "url contains a disallowed character"
	}

	return ""
}
