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

package httpserver

import (
	"crypto/tls"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nabbar/uvhttpd/connection"
	liberr "github.com/nabbar/uvhttpd/errors"
	liblog "github.com/nabbar/uvhttpd/logger"
	"github.com/nabbar/uvhttpd/message"
)

// handshakeTimeout bounds the TLS handshake performed right after accept,
// before a connection.Conn is even created.
const handshakeTimeout = 10 * time.Second

// rejectResponse is written verbatim, without going through message.Response,
// to a socket that will never be promoted to a tracked connection: the
// server is already at capacity and has no business parsing the request
// (spec §4.3, max_connections backpressure).
const rejectResponse = "HTTP/1.1 503 Service Unavailable\r\nConnection: close\r\nContent-Length: 0\r\n\r\n"

// trackedConn pairs a connection's FSM with the raw socket backing it, so
// the sweep loop can query idle state through fsm while Shutdown can close
// the socket directly to unblock a pending Read.
type trackedConn struct {
	fsm *connection.Conn
	raw net.Conn
}

// Listen opens the listening socket and starts the accept and sweep loops.
func (s *srv) Listen() liberr.Error {
	if s.running.Load() {
		return ErrorAlreadyRunning.Error(nil)
	}

	ln, err := net.Listen("tcp", s.GetBindable())
	if err != nil {
		return ErrorListen.Error(err)
	}

	s.cfgMu.Lock()
	s.listener = ln
	s.startedAt = time.Now()
	s.cfgMu.Unlock()

	s.quit = make(chan struct{})
	s.running.Store(true)

	s.wg.Add(2)
	go s.acceptLoop(ln)
	go s.sweepLoop()

	s.logEntry(liblog.InfoLevel, "listening", "addr", s.GetBindable(), "tls", s.IsTLS())
	return nil
}

func (s *srv) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return
			}
			time.Sleep(5 * time.Millisecond)
			continue
		}
		go s.handleAccept(conn)
	}
}

func (s *srv) handleAccept(raw net.Conn) {
	atomic.AddInt64(&s.accepted, 1)
	s.metrics.acceptedTotal.Inc()

	if s.connCount() >= s.currentMaxConn() {
		atomic.AddInt64(&s.rejected, 1)
		s.metrics.rejectedTotal.Inc()
		_, _ = raw.Write([]byte(rejectResponse))
		_ = raw.Close()
		return
	}

	if s.IsTLS() {
		tlsConn := tls.Server(raw, s.tls.TlsConfig(""))
		_ = raw.SetDeadline(time.Now().Add(handshakeTimeout))
		if err := tlsConn.Handshake(); err != nil {
			_ = tlsConn.Close()
			return
		}
		_ = raw.SetDeadline(time.Time{})
		raw = tlsConn
	}

	id := uuid.NewString()
	ccfg := connection.Config{
		ReadBufferSize: s.cfg.ReadBufferSize,
		Timeout:        s.cfg.KeepaliveTimeout,
		MaxBodySize:    s.cfg.MaxBodySize,
	}
	deps := connection.Dependencies{
		Router:            s.rtr,
		Limiter:           s.currentLimiter(),
		Middleware:        s.mw,
		DynamicMiddleware: s.dmw,
		WSConfig:          toWebSocketConfig(s.cfg.WS),
		WSRegistry:        s.wsRegistry,
		WSAuth:            s.currentWSAuth(),
		Upgrade:           s.onUpgrade,
		OnRateLimited:     s.onRateLimited,
	}

	c := connection.New(id, raw.RemoteAddr().String(), &netTransport{conn: raw}, ccfg, deps)

	s.connMu.Lock()
	s.conns[id] = &trackedConn{fsm: c, raw: raw}
	s.connMu.Unlock()

	c.Start()
	s.readLoop(id, c, raw)
}

func (s *srv) readLoop(id string, c *connection.Conn, raw net.Conn) {
	defer s.untrackConn(id)
	defer func() { _ = raw.Close() }()

	buf := make([]byte, s.cfg.ReadBufferSize)
	for {
		_ = raw.SetReadDeadline(time.Now().Add(s.cfg.KeepaliveTimeout))

		n, err := raw.Read(buf)
		if n > 0 {
			if ferr := c.Feed(buf[:n]); ferr != nil {
				return
			}
		}
		if err != nil {
			return
		}
		if c.State() == connection.StateClosing {
			return
		}
	}
}

// onUpgrade adapts connection.Dependencies.Upgrade's (conn, req) shape to
// the path/query pair the public UpgradeFunc hook expects.
func (s *srv) onUpgrade(conn *connection.Conn, req *message.Request) {
	fn, _ := s.upgradeFn.Load().(UpgradeFunc)
	if fn == nil {
		return
	}
	fn(conn, req.Path, req.Query)
}

// onRateLimited feeds the acceptor's own counters from a rejection observed
// deep inside a connection's dispatch pipeline.
func (s *srv) onRateLimited() {
	atomic.AddInt64(&s.ratelimit, 1)
	s.metrics.rateLimitedTotal.Inc()
}

func (s *srv) untrackConn(id string) {
	s.connMu.Lock()
	delete(s.conns, id)
	s.connMu.Unlock()
}

func (s *srv) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			s.sweepOnce(now)
		}
	}
}

func (s *srv) sweepOnce(now time.Time) {
	s.connMu.Lock()
	expired := make([]*trackedConn, 0)
	for id, tc := range s.conns {
		if tc.fsm.IsIdleTimedOut(now) {
			expired = append(expired, tc)
			delete(s.conns, id)
		}
	}
	s.connMu.Unlock()

	for _, tc := range expired {
		_ = tc.raw.Close()
	}

	s.wsRegistry.Sweep()
	s.metrics.wsSessions.Set(float64(s.wsRegistry.Count()))
	s.metrics.activeConnections.Set(float64(s.connCount()))
}

// Shutdown stops accepting new connections, closes every tracked
// connection's socket, and waits for the background goroutines to exit, up
// to shutdownGrace.
func (s *srv) Shutdown() liberr.Error {
	if !s.running.Load() {
		return ErrorNotRunning.Error(nil)
	}

	s.running.Store(false)
	close(s.quit)
	_ = s.listener.Close()

	s.connMu.Lock()
	for id, tc := range s.conns {
		_ = tc.raw.Close()
		delete(s.conns, id)
	}
	s.connMu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(shutdownGrace):
		return ErrorShutdownTimeout.Error(nil)
	}
}

// Restart performs a Shutdown followed by a Listen.
func (s *srv) Restart() liberr.Error {
	if err := s.Shutdown(); err != nil {
		return err
	}
	return s.Listen()
}

// WaitNotify blocks until SIGINT/SIGTERM/SIGQUIT, then calls Shutdown.
func (s *srv) WaitNotify() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-ch
	signal.Stop(ch)
	_ = s.Shutdown()
}
