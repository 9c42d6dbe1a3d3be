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

var _ = Describe("Request", func() {
	var r *message.Request

	BeforeEach(func() {
		r = message.NewRequest(16)
	})

	It("splits the query string from the path", func() {
		Expect(r.SetPath("/users?id=42")).To(BeNil())
		Expect(r.Path).To(Equal("/users"))
		Expect(r.Query).To(Equal("id=42"))
	})

	It("rejects a URL longer than MaxURLSize", func() {
		r2 := message.NewRequest(16)
		long := "/" + strings.Repeat("a", message.MaxURLSize)
		Expect(r2.SetPath(long)).ToNot(BeNil())
	})

	It("rejects a URL containing a disallowed character", func() {
		Expect(r.SetPath("/a<b>")).ToNot(BeNil())
	})

	It("refuses body growth past the configured ceiling", func() {
		Expect(r.AppendBody([]byte("0123456789"))).To(BeNil())
		Expect(r.AppendBody([]byte("0123456789"))).ToNot(BeNil())
	})

	It("captures and returns path parameters", func() {
		Expect(r.SetParam("id", "42")).To(BeNil())
		v, ok := r.Param("id")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("42"))
		Expect(r.ParamCount()).To(Equal(1))
	})

	It("fails the 17th captured parameter", func() {
		for i := 0; i < message.MaxParams; i++ {
			Expect(r.SetParam("p", "v")).To(BeNil())
		}
		Expect(r.SetParam("overflow", "v")).ToNot(BeNil())
	})

	Context("KeepAlive", func() {
		It("is true for HTTP/1.1 without Connection: close", func() {
			Expect(r.KeepAlive(1)).To(BeTrue())
		})

		It("is false for HTTP/1.1 with Connection: close", func() {
			Expect(r.Headers.Set("Connection", "close")).To(BeNil())
			Expect(r.KeepAlive(1)).To(BeFalse())
		})

		It("is false for HTTP/1.0 without Connection: keep-alive", func() {
			Expect(r.KeepAlive(0)).To(BeFalse())
		})

		It("is true for HTTP/1.0 with Connection: keep-alive", func() {
			Expect(r.Headers.Set("Connection", "keep-alive")).To(BeNil())
			Expect(r.KeepAlive(0)).To(BeTrue())
		})
	})

	It("clears state on Reset but keeps the configured ceiling", func() {
		Expect(r.SetPath("/x")).To(BeNil())
		Expect(r.AppendBody([]byte("hi"))).To(BeNil())
		Expect(r.SetParam("a", "b")).To(BeNil())
		r.Reset()
		Expect(r.Path).To(Equal(""))
		Expect(r.Body).To(BeEmpty())
		Expect(r.ParamCount()).To(Equal(0))
		Expect(r.AppendBody([]byte("0123456789"))).To(BeNil())
	})
})
