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
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	libatm "github.com/nabbar/uvhttpd/atomic"
	libtls "github.com/nabbar/uvhttpd/certificates"
	libcfg "github.com/nabbar/uvhttpd/config"
	liberr "github.com/nabbar/uvhttpd/errors"
	liblog "github.com/nabbar/uvhttpd/logger"
	"github.com/nabbar/uvhttpd/message"
	"github.com/nabbar/uvhttpd/middleware"
	"github.com/nabbar/uvhttpd/ratelimit"
	"github.com/nabbar/uvhttpd/router"
	"github.com/nabbar/uvhttpd/static"
	"github.com/nabbar/uvhttpd/websocket"
)

type srv struct {
	name string
	log  liblog.FuncLog

	cfgMu sync.RWMutex
	cfg   libcfg.Config

	tls libtls.TLSConfig

	rtr *router.Router
	mw  *middleware.Chain
	dmw *middleware.DynamicChain

	limMu sync.RWMutex
	lim   *ratelimit.Limiter

	stc *static.Static

	wsRegistry *websocket.Registry
	wsAuthMu   sync.RWMutex
	wsAuth     *websocket.Authenticator
	upgradeFn  atomic.Value // UpgradeFunc

	listener  net.Listener
	startedAt time.Time
	running   libatm.Value[bool]

	quit chan struct{}
	wg   sync.WaitGroup

	connMu sync.Mutex
	conns  map[string]*trackedConn

	maxConnMu sync.RWMutex
	maxConn   int

	metrics *metrics

	accepted  int64
	rejected  int64
	ratelimit int64
}

func newServer(cfg libcfg.Config, defLog liblog.FuncLog) (Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &srv{
		name:    cfg.Listen,
		log:     defLog,
		cfg:     cfg,
		rtr:     router.New(routeCapacity(cfg)),
		mw:      middleware.NewChain(),
		dmw:     middleware.NewDynamicChain(),
		conns:   make(map[string]*trackedConn),
		maxConn: cfg.MaxConnections,
		metrics: newMetrics(cfg.Listen),
		running: libatm.NewValue[bool](),
	}

	if cfg.TLS.Enabled {
		tlsCfg, err := cfg.TLS.New()
		if err != nil {
			return nil, ErrorTLSInit.Error(err)
		}
		s.tls = tlsCfg
	}

	if cfg.Static.Root != "" {
		stc, err := static.New(toStaticConfig(cfg.Static))
		if err != nil {
			return nil, ErrorStaticInit.Error(err)
		}
		s.stc = stc
	}

	lim, err := ratelimit.New(toRateLimitConfig(cfg.RateLimit))
	if err != nil {
		return nil, ErrorLimiterInit.Error(err)
	}
	s.lim = lim

	s.wsRegistry = websocket.NewRegistry(toWebSocketConfig(cfg.WS))

	if cfg.EnableHealthRoute {
		if e := s.rtr.Register(message.MaskGet, "/__health", s.healthHandler); e != nil {
			return nil, ErrorRouterInit.Error(e)
		}
	}

	if s.stc != nil {
		s.rtr.SetNotFound(s.stc.Serve)
	}

	return s, nil
}

func routeCapacity(cfg libcfg.Config) int {
	if cfg.RouteCapacity > 0 {
		return cfg.RouteCapacity
	}
	return 64
}

func toRateLimitConfig(rl libcfg.RateLimit) ratelimit.Config {
	return ratelimit.Config{
		Enabled:       rl.Enabled,
		MaxRequests:   rl.MaxRequests,
		WindowSeconds: rl.WindowSeconds,
		Whitelist:     rl.Whitelist,
	}
}

func toStaticConfig(st libcfg.Static) static.Config {
	return static.Config{
		Root:                   st.Root,
		IndexFile:              st.IndexFile,
		EnableDirectoryListing: st.EnableDirectoryListing,
		EnableETag:             st.EnableETag,
		MaxCacheSize:           st.MaxCacheSize,
		CacheTTL:               st.CacheTTL,
		MaxCacheEntries:        st.MaxCacheEntries,
		SendFile: static.SendFile{
			TimeoutMs: st.SendFile.TimeoutMs,
			MaxRetry:  st.SendFile.MaxRetry,
			ChunkSize: st.SendFile.ChunkSize,
		},
	}
}

func toWebSocketConfig(ws libcfg.WebSocket) websocket.Config {
	return websocket.Config{
		Timeout:           ws.Timeout,
		HeartbeatInterval: ws.HeartbeatInterval,
		PingTimeout:       ws.PingTimeout,
	}
}

func (s *srv) GetName() string {
	return s.name
}

func (s *srv) GetBindable() string {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg.Listen
}

func (s *srv) Addr() string {
	s.cfgMu.RLock()
	ln := s.listener
	s.cfgMu.RUnlock()
	if ln == nil {
		return s.GetBindable()
	}
	return ln.Addr().String()
}

// Uptime reports how long the accept loop has been running, or zero before
// the first successful Listen.
func (s *srv) Uptime() time.Duration {
	s.cfgMu.RLock()
	started := s.startedAt
	s.cfgMu.RUnlock()
	if started.IsZero() || !s.IsRunning() {
		return 0
	}
	return time.Since(started)
}

func (s *srv) IsTLS() bool {
	return s.tls != nil && s.tls.LenCertificatePair() > 0
}

func (s *srv) Router() *router.Router {
	return s.rtr
}

func (s *srv) Middleware() *middleware.Chain {
	return s.mw
}

func (s *srv) DynamicMiddleware() *middleware.DynamicChain {
	return s.dmw
}

func (s *srv) SetWebSocketAuthenticator(a *websocket.Authenticator) {
	s.wsAuthMu.Lock()
	defer s.wsAuthMu.Unlock()
	s.wsAuth = a
}

func (s *srv) SetUpgradeHook(fn UpgradeFunc) {
	s.upgradeFn.Store(fn)
}

func (s *srv) IsRunning() bool {
	return s.running.Load()
}

func (s *srv) UpdateLimits(maxConnections int, rl libcfg.RateLimit) liberr.Error {
	lim, err := ratelimit.New(toRateLimitConfig(rl))
	if err != nil {
		return ErrorLimiterInit.Error(err)
	}

	s.limMu.Lock()
	s.lim = lim
	s.limMu.Unlock()

	s.maxConnMu.Lock()
	if maxConnections > 0 {
		s.maxConn = maxConnections
	}
	s.maxConnMu.Unlock()

	return nil
}

func (s *srv) Monitor() Stats {
	return Stats{
		ActiveConnections: int64(s.connCount()),
		TotalAccepted:     atomic.LoadInt64(&s.accepted),
		TotalRejected:     atomic.LoadInt64(&s.rejected),
		TotalRateLimited:  atomic.LoadInt64(&s.ratelimit),
		WebSocketSessions: s.wsRegistry.Count(),
	}
}

func (s *srv) MonitorName() string {
	return "uvhttpd [" + s.name + "]"
}

func (s *srv) Registry() *prometheus.Registry {
	return s.metrics.registry
}

func (s *srv) HealthCheck() error {
	if !s.IsRunning() {
		return ErrorNotRunning.Error(nil)
	}
	return nil
}

func (s *srv) connCount() int {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return len(s.conns)
}

func (s *srv) currentLimiter() *ratelimit.Limiter {
	s.limMu.RLock()
	defer s.limMu.RUnlock()
	return s.lim
}

func (s *srv) currentMaxConn() int {
	s.maxConnMu.RLock()
	defer s.maxConnMu.RUnlock()
	return s.maxConn
}

func (s *srv) currentWSAuth() *websocket.Authenticator {
	s.wsAuthMu.RLock()
	defer s.wsAuthMu.RUnlock()
	return s.wsAuth
}

func (s *srv) logEntry(lvl liblog.Level, msg string, args ...interface{}) {
	if s.log == nil {
		return
	}
	l := s.log()
	if l == nil {
		return
	}
	l.Entry(lvl, msg, args...).Log()
}
