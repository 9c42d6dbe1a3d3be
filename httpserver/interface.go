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

// Package httpserver is the accept loop and connection lifecycle manager
// built on top of connection.Conn: it owns the listener, the TLS
// configuration, the shared router/middleware/rate-limiter/static/
// WebSocket collaborators, the active-connection table, and the periodic
// sweep that drives idle timeouts and WebSocket heartbeats.
package httpserver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	libcfg "github.com/nabbar/uvhttpd/config"
	"github.com/nabbar/uvhttpd/connection"
	liberr "github.com/nabbar/uvhttpd/errors"
	liblog "github.com/nabbar/uvhttpd/logger"
	"github.com/nabbar/uvhttpd/middleware"
	"github.com/nabbar/uvhttpd/router"
	"github.com/nabbar/uvhttpd/websocket"
)

// Info provides read-only access to server identification.
type Info interface {
	// GetName returns a human-readable identifier for this server.
	GetName() string

	// GetBindable returns the configured bind address, as given at New.
	GetBindable() string

	// Addr returns the actual local address of the listening socket once
	// Listen has succeeded (useful when GetBindable uses port 0), falling
	// back to GetBindable beforehand.
	Addr() string

	// IsTLS returns true once a certificate pair was loaded for this server.
	IsTLS() bool

	// Uptime reports how long the accept loop has been running, or zero
	// before the first successful Listen.
	Uptime() time.Duration
}

// Stats is a snapshot of the server's runtime counters (component N), also
// exported as Prometheus gauges/counters under the "uvhttpd_" namespace.
type Stats struct {
	ActiveConnections  int64
	TotalAccepted      int64
	TotalRejected      int64
	TotalRateLimited   int64
	WebSocketSessions  int
}

// Server is the lifecycle and registration surface for one listening
// socket. All methods are safe for concurrent use.
type Server interface {
	Info

	// Router returns the route table this server dispatches to. Register
	// routes on it before calling Listen.
	Router() *router.Router

	// Middleware returns the static, always-run middleware chain.
	Middleware() *middleware.Chain

	// DynamicMiddleware returns the per-path-prefix middleware registry.
	DynamicMiddleware() *middleware.DynamicChain

	// SetWebSocketAuthenticator installs the deny/allow/token authenticator
	// consulted on every WebSocket upgrade. A nil authenticator accepts
	// every upgrade.
	SetWebSocketAuthenticator(a *websocket.Authenticator)

	// SetUpgradeHook installs the callback invoked right after a
	// connection is promoted to PROTOCOL_UPGRADED, before any frame can
	// arrive, so the caller can register per-connection message handlers.
	SetUpgradeHook(fn UpgradeFunc)

	// Listen opens the listening socket and starts the accept loop and the
	// sweep loop in background goroutines. Returns once the socket is
	// open; it does not block for the server's lifetime.
	Listen() liberr.Error

	// Shutdown stops accepting new connections, closes every tracked
	// connection, and waits for the background goroutines to exit, up to
	// a fixed grace period.
	Shutdown() liberr.Error

	// Restart performs a Shutdown followed by a Listen.
	Restart() liberr.Error

	// WaitNotify blocks until SIGINT/SIGTERM/SIGQUIT, then calls Shutdown.
	WaitNotify()

	// IsRunning reports whether the accept loop is currently active.
	IsRunning() bool

	// UpdateLimits swaps the rate limiter and the max-connections ceiling
	// without requiring a Restart (SPEC_FULL.md, Supplemented Feature 2).
	UpdateLimits(maxConnections int, rl libcfg.RateLimit) liberr.Error

	// Monitor returns a snapshot of this server's runtime counters.
	Monitor() Stats

	// MonitorName returns the identifier this server registers its
	// Prometheus metrics and health check under.
	MonitorName() string

	// Registry returns this server's own Prometheus registry, so a caller
	// can expose it via its own /metrics scrape endpoint.
	Registry() *prometheus.Registry

	// HealthCheck reports a non-nil error once the server is not running,
	// backing both an external caller and the /__health route.
	HealthCheck() error
}

// UpgradeFunc is consulted once a WebSocket handshake succeeds, before any
// frame can arrive, so the caller can install message handlers via
// conn.SetWebSocketHandlers and use conn.SendMessage/conn.ID as needed.
type UpgradeFunc func(conn *connection.Conn, path, query string)

// sweepInterval is how often the background sweep checks idle timeouts and
// drives the WebSocket heartbeat registry (spec §4.3/§4.6).
const sweepInterval = 1 * time.Second

// shutdownGrace bounds how long Shutdown waits for the accept and sweep
// goroutines to exit before returning anyway.
const shutdownGrace = 10 * time.Second

// New builds a Server from cfg. The server is not listening yet; call
// Listen once routes and middleware are registered.
func New(cfg libcfg.Config, defLog liblog.FuncLog) (Server, error) {
	return newServer(cfg, defLog)
}
