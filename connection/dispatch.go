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

package connection

import (
	"net"
	"strconv"
	"time"

	"github.com/nabbar/uvhttpd/message"
	"github.com/nabbar/uvhttpd/middleware"
	"github.com/nabbar/uvhttpd/router"
	"github.com/nabbar/uvhttpd/websocket"
)

func (c *Conn) peerIP() string {
	host, _, err := net.SplitHostPort(c.peer)
	if err != nil {
		return c.peer
	}
	return host
}

// dispatch runs the HTTP_READING -> HTTP_PROCESSING -> HTTP_WRITING leg of
// the FSM (spec §4.3) once the parser reports a complete message: rate
// limiting, routing, middleware, the handler, and, if the request asked to
// upgrade, the WebSocket handshake instead of an ordinary response.
func (c *Conn) dispatch() {
	c.state = StateHTTPProcessing

	if c.req.Method == message.MethodUnknown {
		c.resp.Status = 400
		c.resp.Body = []byte("Bad Request")
		c.writeResponse()
		return
	}

	if c.deps.Limiter != nil && c.deps.Limiter.Enabled() {
		if ok, retryAfter := c.deps.Limiter.Allow(c.peerIP()); !ok {
			c.writeRateLimited(retryAfter)
			return
		}
	}

	if pu, ok := c.matchProtocolUpgrade(); ok {
		c.transferOwnership(pu)
		return
	}

	if websocket.IsUpgradeRequest(c.req) {
		c.handleUpgrade()
		return
	}

	c.runHandler()
	c.writeResponse()
}

// matchProtocolUpgrade returns the first registered ProtocolUpgrade whose
// Detect matches the in-flight request, in registration order.
func (c *Conn) matchProtocolUpgrade() (ProtocolUpgrade, bool) {
	for _, pu := range c.deps.ProtocolUpgrades {
		if pu.Detect != nil && pu.Detect(c.req) {
			return pu, true
		}
	}
	return ProtocolUpgrade{}, false
}

// transferOwnership hands the raw Transport to pu.Handler and disarms this
// Conn: StateOwnershipTransferred makes Feed a no-op and IsIdleTimedOut
// permanently false, since the handler, not this FSM, now owns the
// connection's reads, writes, and lifecycle.
func (c *Conn) transferOwnership(pu ProtocolUpgrade) {
	c.state = StateOwnershipTransferred
	pu.Handler(c.transport, c.req)
}

func (c *Conn) runHandler() {
	handler, params, result := c.deps.Router.Match(c.req.Method, c.req.Path)

	switch result {
	case router.MatchMethodNotAllowed:
		c.resp.Status = 405
		c.resp.Body = []byte("Method Not Allowed")
		return
	case router.MatchNotFound:
		if handler == nil {
			c.resp.Status = 404
			c.resp.Body = []byte("Not Found")
			return
		}
	}

	if err := router.ApplyParams(c.req, params); err != nil {
		c.resp.Status = 500
		c.resp.Body = []byte("Internal Server Error")
		return
	}

	ctx := middleware.NewContext()
	ctx.Set(middleware.PeerIPKey, c.peerIP())
	if c.deps.Middleware != nil {
		if c.deps.Middleware.Run(c.req, c.resp, ctx) == middleware.Stop {
			return
		}
	}
	if c.deps.DynamicMiddleware != nil {
		if c.deps.DynamicMiddleware.For(c.req.Path).Run(c.req, c.resp, ctx) == middleware.Stop {
			return
		}
	}

	if handler == nil {
		c.resp.Status = 404
		c.resp.Body = []byte("Not Found")
		return
	}

	handler(c.req, c.resp)
	if c.resp.Status == 0 {
		c.resp.Status = 500
	}
}

func (c *Conn) writeResponse() {
	c.state = StateHTTPWriting

	keepAlive := c.req.KeepAlive(c.parser.MinorVersion())
	if keepAlive {
		_ = c.resp.Headers.Set("Connection", "keep-alive")
	} else {
		_ = c.resp.Headers.Set("Connection", "close")
	}

	if err := c.transport.Write(c.resp.Build()); err != nil {
		c.enterClosing()
		return
	}
	c.resp.MarkFinished()

	if !keepAlive {
		c.enterClosing()
		return
	}

	c.req.Reset()
	c.resp.Reset()
	c.parser.Reset()
	c.pendingHeaderName = ""
	c.bytesBuffered = 0
	c.lastActivity = time.Now()
	c.state = StateHTTPReading
}

func (c *Conn) writeRateLimited(retryAfter time.Duration) {
	if c.deps.OnRateLimited != nil {
		c.deps.OnRateLimited()
	}
	c.resp.Status = 429
	_ = c.resp.Headers.Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	c.resp.Body = []byte("Too Many Requests")
	c.writeResponse()
}

func (c *Conn) writeBestEffort400() {
	if c.resp.HeadersSent() {
		return
	}
	c.resp.Status = 400
	_ = c.resp.Headers.Set("Connection", "close")
	c.resp.Body = []byte("Bad Request")
	_ = c.transport.Write(c.resp.Build())
}

func (c *Conn) enterClosing() {
	if c.state == StateClosing {
		return
	}
	c.state = StateClosing
	if c.deps.WSRegistry != nil && c.wsUpgraded {
		c.deps.WSRegistry.Unregister(c.id)
	}
	_ = c.transport.Close()
}

// handleUpgrade runs spec §4.6's handshake: authentication (if configured),
// then the RFC 6455 handshake response; success moves HTTP_PROCESSING to
// PROTOCOL_UPGRADED, failure writes 400/403/500 and moves to CLOSING.
func (c *Conn) handleUpgrade() {
	if c.deps.WSAuth != nil {
		switch c.deps.WSAuth.Authorize(c.req, c.peerIP()) {
		case websocket.AuthReject:
			c.resp.Status = 403
			c.resp.Body = []byte("Forbidden")
			_ = c.req.Headers.Set("Connection", "close")
			c.writeResponse()
			return
		case websocket.AuthError:
			c.resp.Status = 500
			c.resp.Body = []byte("Internal Server Error")
			_ = c.req.Headers.Set("Connection", "close")
			c.writeResponse()
			return
		}
	}

	if err := websocket.Handshake(c.req, c.resp); err != nil {
		c.resp.Status = 400
		c.resp.Body = []byte("Bad Request")
		_ = c.req.Headers.Set("Connection", "close")
		c.writeResponse()
		return
	}

	if err := c.transport.Write(c.resp.Build()); err != nil {
		c.enterClosing()
		return
	}
	c.resp.MarkFinished()

	c.wsUpgraded = true
	c.state = StateProtocolUpgraded
	c.lastActivity = time.Now()

	if c.deps.Upgrade != nil {
		c.deps.Upgrade(c, c.req)
	}
	c.wsDecoder = websocket.NewDecoder(c.deps.WSConfig, c.wsCallbacks())

	if c.deps.WSRegistry != nil {
		c.deps.WSRegistry.Register(c.id, c)
	}
}
