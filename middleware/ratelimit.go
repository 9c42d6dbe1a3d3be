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

package middleware

import (
	"strconv"

	"github.com/nabbar/uvhttpd/message"
	"github.com/nabbar/uvhttpd/ratelimit"
)

// PeerIPKey is the Context key the connection layer sets, before running
// any chain, to the in-flight request's remote IP. RateLimit reads it from
// there since a Middleware has no direct access to the underlying
// transport's peer address.
const PeerIPKey = "peerIP"

// RateLimit wraps a ratelimit.Limiter as a composable Middleware, so a
// route's chain can place it anywhere relative to CORS/Auth/ContentTypeGate
// (the CORS-before-rate-limiting-before-auth demo composition). current is
// called on every request rather than bound once, so a limiter swapped live
// (e.g. an UpdateLimits-style reconfiguration) takes effect on the next
// request without rebuilding the chain. onRejected, if set, is called once
// per 429, so the caller can feed its own counters.
func RateLimit(current func() *ratelimit.Limiter, onRejected func()) Middleware {
	return func(req *message.Request, resp *message.Response, ctx *Context) Signal {
		lim := current()
		if lim == nil || !lim.Enabled() {
			return Continue
		}

		peerIP, _ := ctx.Get(PeerIPKey)
		ip, _ := peerIP.(string)

		ok, retryAfter := lim.Allow(ip)
		if ok {
			return Continue
		}

		if onRejected != nil {
			onRejected()
		}
		resp.Status = 429
		_ = resp.Headers.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
		resp.Body = []byte("Too Many Requests")
		return Stop
	}
}
