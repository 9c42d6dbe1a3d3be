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

// Package connection implements the per-connection finite-state machine
// (spec §4.3): it owns the request/response pair, the incremental parser,
// the read buffer, and, once upgraded, a WebSocket decoder and session,
// and drives them through NEW/TLS_HANDSHAKE/HTTP_READING/HTTP_PROCESSING/
// HTTP_WRITING/PROTOCOL_UPGRADED/CLOSING. It is transport-agnostic: bytes
// arrive via Feed and leave via the Transport the caller supplies, so the
// acceptor owns the actual socket.
package connection

import (
	"net"
	"time"

	liberr "github.com/nabbar/uvhttpd/errors"
	"github.com/nabbar/uvhttpd/message"
	"github.com/nabbar/uvhttpd/middleware"
	"github.com/nabbar/uvhttpd/parser"
	"github.com/nabbar/uvhttpd/ratelimit"
	"github.com/nabbar/uvhttpd/router"
	"github.com/nabbar/uvhttpd/websocket"
)

// State is one of the FSM states spec §4.3 names.
type State uint8

const (
	StateNew State = iota
	StateTLSHandshake
	StateHTTPReading
	StateHTTPProcessing
	StateHTTPWriting
	StateProtocolUpgraded
	StateClosing

	// StateOwnershipTransferred is the terminal state a Conn enters once a
	// Dependencies.ProtocolUpgrades handler has taken ownership of the raw
	// Transport (the GLOSSARY's generalised "Upgrade"): the FSM stops
	// driving the connection entirely from this point on, the same way it
	// stops once CLOSING, but without closing the transport itself.
	StateOwnershipTransferred
)

// DefaultReadBufferSize is the per-connection read buffer spec §4.3 names.
const DefaultReadBufferSize = 8 * 1024

// DefaultTimeout is the connection-idle timeout applied when Config.Timeout
// is left zero; spec §4.3 bounds it to [5s, 300s].
const DefaultTimeout = 60 * time.Second

// Transport is the minimal surface Conn needs from the underlying socket:
// one write, one close. The acceptor (component I) implements it over a
// net.Conn (or a *tls.Conn once the TLS handshake completes).
type Transport interface {
	Write(p []byte) error
	Close() error
}

// Config is the subset of config.Config a Conn needs, copied in rather
// than referencing the config package so this package's only dependency
// direction stays inward.
type Config struct {
	ReadBufferSize int
	Timeout        time.Duration
	MaxBodySize    int64
	TLSEnabled     bool
}

func (c Config) normalised() Config {
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = DefaultReadBufferSize
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = message.DefaultMaxBodySize
	}
	return c
}

// Dependencies bundles the server-wide collaborators a Conn dispatches
// through. Every field is optional except Router.
type Dependencies struct {
	Router            *router.Router
	Limiter           *ratelimit.Limiter
	Middleware        *middleware.Chain
	DynamicMiddleware *middleware.DynamicChain

	WSConfig   websocket.Config
	WSRegistry *websocket.Registry
	WSAuth     *websocket.Authenticator

	// Upgrade is consulted once a request carries Upgrade: websocket and
	// passed authentication; it lets the caller register on_message-style
	// handlers for the session's path before the 101 response is sent.
	Upgrade func(conn *Conn, req *message.Request)

	// OnRateLimited, if set, is called once per request rejected by
	// Limiter, so the acceptor can feed its own TotalRateLimited counter
	// and Prometheus collector without this package depending on either.
	OnRateLimited func()

	// ProtocolUpgrades generalises the Upgrade transition (spec §4.3,
	// GLOSSARY "Upgrade") beyond the built-in WebSocket handshake: each is
	// consulted, in order, ahead of the WebSocket check, and the first
	// whose Detect matches the request takes ownership of the connection.
	ProtocolUpgrades []ProtocolUpgrade
}

// ProtocolUpgrade is one entry in Dependencies.ProtocolUpgrades: Detect
// reports whether req is asking for this protocol, and Handler receives the
// raw Transport once transferOwnership has disarmed the FSM's timers and
// read loop, so it can take over the connection from that point on.
type ProtocolUpgrade struct {
	Name    string
	Detect  func(req *message.Request) bool
	Handler func(owned Transport, req *message.Request)
}

// Conn is one accepted connection and its FSM.
type Conn struct {
	id   string
	peer string

	transport Transport
	cfg       Config
	deps      Dependencies

	state State

	// bytesBuffered counts bytes handed to the parser for the in-flight
	// message; it is reset whenever the parser is (on completion or
	// Reset) and on every body chunk the parser delivers, and guards the single 8 KiB read buffer spec §4.3 names: if
	// it grows past cfg.ReadBufferSize without the parser ever reaching
	// Done, no request line/header is ever going to fit and the
	// connection is closed rather than left to buffer forever.
	bytesBuffered int

	parser *parser.Parser
	req    *message.Request
	resp   *message.Response

	lastActivity time.Time

	pendingHeaderName string

	wsDecoder  *websocket.Decoder
	wsUpgraded bool
	wsHandlers WebSocketHandlers

	closeSent bool
}

// New returns a Conn in state NEW, ready for Start.
func New(id, peerAddr string, transport Transport, cfg Config, deps Dependencies) *Conn {
	cfg = cfg.normalised()

	c := &Conn{
		id:        id,
		peer:      peerAddr,
		transport: transport,
		cfg:       cfg,
		deps:      deps,
		req:       message.NewRequest(cfg.MaxBodySize),
		resp:      message.NewResponse(),
	}
	c.parser = parser.New(c.callbacks(), cfg.MaxBodySize)
	return c
}

// ID returns the connection's identifier, used as its registry key once
// upgraded to a WebSocket session.
func (c *Conn) ID() string {
	return c.id
}

// State returns the current FSM state.
func (c *Conn) State() State {
	return c.state
}

// Start transitions NEW to either TLS_HANDSHAKE or HTTP_READING depending
// on Config.TLSEnabled, per spec §4.3's first row.
func (c *Conn) Start() {
	c.lastActivity = time.Now()
	if c.cfg.TLSEnabled {
		c.state = StateTLSHandshake
		return
	}
	c.state = StateHTTPReading
}

// TLSHandshakeDone transitions TLS_HANDSHAKE to HTTP_READING on success, or
// CLOSING on failure (spec §4.3).
func (c *Conn) TLSHandshakeDone(ok bool) {
	if c.state != StateTLSHandshake {
		return
	}
	if !ok {
		c.enterClosing()
		return
	}
	c.state = StateHTTPReading
	c.lastActivity = time.Now()
}

// IsIdleTimedOut reports whether now has exceeded this connection's
// configured idle timeout since its last progress; the acceptor's timer
// loop (component I) polls this once a second for every live Conn.
func (c *Conn) IsIdleTimedOut(now time.Time) bool {
	if c.state == StateClosing || c.state == StateOwnershipTransferred {
		return false
	}
	return now.Sub(c.lastActivity) > c.cfg.Timeout
}

// Feed delivers newly-read bytes to the connection. In HTTP_READING it
// drives the parser; in PROTOCOL_UPGRADED it drives the WebSocket decoder.
// Any other state is a no-op (the caller should not be reading).
func (c *Conn) Feed(data []byte) liberr.Error {
	c.lastActivity = time.Now()

	switch c.state {
	case StateHTTPReading:
		return c.feedHTTP(data)
	case StateProtocolUpgraded:
		return c.feedWebSocket(data)
	default:
		return nil
	}
}

// feedHTTP drains data into the parser one byte at a time: Parser.Feed has
// no notion of "bytes consumed", so single-byte steps are the only way to
// stop exactly at message-complete and preserve any pipelined bytes that
// follow in the same read for the next request.
func (c *Conn) feedHTTP(data []byte) liberr.Error {
	for i := 0; i < len(data); i++ {
		if err := c.parser.Feed(data[i : i+1]); err != nil {
			c.writeBestEffort400()
			c.enterClosing()
			return err
		}
		c.bytesBuffered++

		if c.parser.Done() {
			c.bytesBuffered = 0
			c.req.Method = message.ParseMethod(c.parser.Method())
			c.dispatch()
			if i+1 < len(data) && c.state == StateHTTPReading {
				return c.feedHTTP(data[i+1:])
			}
			return nil
		}

		if c.bytesBuffered > c.cfg.ReadBufferSize {
			c.enterClosing()
			return ErrorReadBufferFull.Error(nil)
		}
	}

	return nil
}

func (c *Conn) feedWebSocket(data []byte) liberr.Error {
	if c.wsDecoder == nil {
		return nil
	}
	if c.deps.WSRegistry != nil {
		c.deps.WSRegistry.Touch(c.id)
	}
	if err := c.wsDecoder.Feed(data); err != nil {
		c.closeWebSocket(websocket.CloseProtocolError, "protocol error")
		return err
	}
	return nil
}

// callbacks wires the parser's six callbacks to c.req, per spec §4.2.
func (c *Conn) callbacks() parser.Callbacks {
	return parser.Callbacks{
		OnURL: func(url []byte) error {
			if err := c.req.SetPath(string(url)); err != nil {
				return err
			}
			return nil
		},
		OnHeaderField: func(name []byte) error {
			c.pendingHeaderName = string(name)
			return nil
		},
		OnHeaderValue: func(value []byte) error {
			return c.req.Headers.Set(c.pendingHeaderName, string(value))
		},
		OnBody: func(chunk []byte) error {
			c.bytesBuffered = 0
			return c.req.AppendBody(chunk)
		},
	}
}
