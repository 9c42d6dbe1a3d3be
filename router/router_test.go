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

package router_test

import (
	"github.com/nabbar/uvhttpd/message"
	"github.com/nabbar/uvhttpd/router"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func noop(_ *message.Request, _ *message.Response) {}

var _ = Describe("Router", func() {
	var rt *router.Router

	BeforeEach(func() {
		rt = router.New(4)
	})

	It("prefers a literal match over a parameterised one", func() {
		var hit string
		Expect(rt.Register(message.MaskGet, "/users/:id", func(_ *message.Request, _ *message.Response) {
			hit = "param"
		})).To(BeNil())
		Expect(rt.Register(message.MaskGet, "/users/me", func(_ *message.Request, _ *message.Response) {
			hit = "literal"
		})).To(BeNil())

		h, _, res := rt.Match(message.MethodGet, "/users/me")
		Expect(res).To(Equal(router.MatchOK))
		h(nil, nil)
		Expect(hit).To(Equal("literal"))
	})

	It("captures a path parameter", func() {
		Expect(rt.Register(message.MaskGet, "/users/:id", noop)).To(BeNil())
		_, params, res := rt.Match(message.MethodGet, "/users/42")
		Expect(res).To(Equal(router.MatchOK))
		Expect(params).To(HaveLen(1))
		Expect(params[0].Name()).To(Equal("id"))
		Expect(params[0].Value()).To(Equal("42"))
	})

	It("picks the first parameterised match in insertion order when no literal matches", func() {
		var hit string
		Expect(rt.Register(message.MaskGet, "/a/:x", func(_ *message.Request, _ *message.Response) { hit = "first" })).To(BeNil())
		Expect(rt.Register(message.MaskGet, "/:y/b", func(_ *message.Request, _ *message.Response) { hit = "second" })).To(BeNil())

		h, _, res := rt.Match(message.MethodGet, "/a/b")
		Expect(res).To(Equal(router.MatchOK))
		h(nil, nil)
		Expect(hit).To(Equal("first"))
	})

	It("returns MatchNotFound when no route matches the path", func() {
		Expect(rt.Register(message.MaskGet, "/users", noop)).To(BeNil())
		_, _, res := rt.Match(message.MethodGet, "/missing")
		Expect(res).To(Equal(router.MatchNotFound))
	})

	It("returns MatchMethodNotAllowed when the path matches but not the method", func() {
		Expect(rt.Register(message.MaskGet, "/users", noop)).To(BeNil())
		_, _, res := rt.Match(message.MethodPost, "/users")
		Expect(res).To(Equal(router.MatchMethodNotAllowed))
	})

	It("ANY mask matches every method", func() {
		Expect(rt.Register(message.MaskAny, "/ping", noop)).To(BeNil())
		_, _, res := rt.Match(message.MethodDelete, "/ping")
		Expect(res).To(Equal(router.MatchOK))
	})

	It("rejects registration past capacity", func() {
		for i := 0; i < 4; i++ {
			Expect(rt.Register(message.MaskGet, "/r"+string(rune('a'+i)), noop)).To(BeNil())
		}
		Expect(rt.Register(message.MaskGet, "/overflow", noop)).ToNot(BeNil())
	})

	It("rejects an empty pattern", func() {
		Expect(rt.Register(message.MaskGet, "", noop)).ToNot(BeNil())
	})

	It("ApplyParams writes captured parameters into a Request", func() {
		Expect(rt.Register(message.MaskGet, "/users/:id", noop)).To(BeNil())
		_, params, _ := rt.Match(message.MethodGet, "/users/42")

		req := message.NewRequest(0)
		Expect(router.ApplyParams(req, params)).To(BeNil())
		v, ok := req.Param("id")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("42"))
	})
})
