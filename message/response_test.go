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

package message_test

import (
	"strings"

	"github.com/nabbar/uvhttpd/message"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Response", func() {
	It("reports Unknown for an unmapped status code", func() {
		Expect(message.ReasonPhrase(799)).To(Equal("Unknown"))
	})

	It("builds exactly one status line and one blank line before the body", func() {
		r := message.NewResponse()
		r.Status = 200
		r.Body = []byte("Hello")
		out := string(r.Build())

		Expect(out).To(HavePrefix("HTTP/1.1 200 OK\r\n"))
		Expect(strings.Count(out, "\r\n\r\n")).To(Equal(1))
		Expect(out).To(HaveSuffix("Hello"))
		Expect(r.HeadersSent()).To(BeTrue())
	})

	It("fills in Content-Type and Content-Length when the handler set neither", func() {
		r := message.NewResponse()
		r.Status = 200
		r.Body = []byte("Hello")
		_ = r.Build()

		ct, _ := r.Headers.Get("Content-Type")
		cl, _ := r.Headers.Get("Content-Length")
		Expect(ct).To(Equal("text/plain"))
		Expect(cl).To(Equal("5"))
	})

	It("leaves an explicitly set Content-Type untouched", func() {
		r := message.NewResponse()
		r.Status = 200
		Expect(r.Headers.Set("Content-Type", "application/json")).To(BeNil())
		r.Body = []byte(`{}`)
		_ = r.Build()

		ct, _ := r.Headers.Get("Content-Type")
		Expect(ct).To(Equal("application/json"))
	})

	It("clears on Reset", func() {
		r := message.NewResponse()
		r.Status = 404
		r.MarkFinished()
		r.Reset()
		Expect(r.Status).To(Equal(0))
		Expect(r.Finished()).To(BeFalse())
		Expect(r.HeadersSent()).To(BeFalse())
	})
})
