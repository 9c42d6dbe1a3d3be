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

// Method is one of the seven HTTP verbs this server honours.
type Method uint8

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodDelete
	MethodHead
	MethodOptions
	MethodPatch
)

// MethodMask is a bit set of Method values used by route entries; ANY
// matches every method.
type MethodMask uint8

const (
	MaskGet MethodMask = 1 << iota
	MaskPost
	MaskPut
	MaskDelete
	MaskHead
	MaskOptions
	MaskPatch

	MaskAny = MaskGet | MaskPost | MaskPut | MaskDelete | MaskHead | MaskOptions | MaskPatch
)

// Mask returns the single-bit MethodMask corresponding to m, or 0 for
// MethodUnknown.
func (m Method) Mask() MethodMask {
	switch m {
	case MethodGet:
		return MaskGet
	case MethodPost:
		return MaskPost
	case MethodPut:
		return MaskPut
	case MethodDelete:
		return MaskDelete
	case MethodHead:
		return MaskHead
	case MethodOptions:
		return MaskOptions
	case MethodPatch:
		return MaskPatch
	}
	return 0
}

// Match reports whether mask accepts m.
func (mask MethodMask) Match(m Method) bool {
	return mask&m.Mask() != 0
}

func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodPost:
		return "POST"
	case MethodPut:
		return "PUT"
	case MethodDelete:
		return "DELETE"
	case MethodHead:
		return "HEAD"
	case MethodOptions:
		return "OPTIONS"
	case MethodPatch:
		return "PATCH"
	}
	return ""
}

// ParseMethod maps a wire method token to a Method, or MethodUnknown if it
// is not one of the seven honoured verbs.
func ParseMethod(token string) Method {
	switch token {
	case "GET":
		return MethodGet
	case "POST":
		return MethodPost
	case "PUT":
		return MethodPut
	case "DELETE":
		return MethodDelete
	case "HEAD":
		return MethodHead
	case "OPTIONS":
		return MethodOptions
	case "PATCH":
		return MethodPatch
	}
	return MethodUnknown
}
