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

// Package ratelimit implements the fixed-window, server-wide rate limiter
// (spec §4.7): a single counter shared by every connection plus an IP
// allow-list, not a per-IP scheme (spec §9's Open Question is resolved in
// favour of preserving the original's server-wide behaviour).
package ratelimit

import (
	"net"
	"sync"
	"time"

	liberr "github.com/nabbar/uvhttpd/errors"
)

const (
	minMaxRequests = 1
	maxMaxRequests = 1_000_000
	minWindow      = 1 * time.Second
	maxWindow      = 86400 * time.Second
)

// Config mirrors config.RateLimit without importing the config package,
// keeping this package's only dependency direction inward from config.
type Config struct {
	Enabled       bool
	MaxRequests   int
	WindowSeconds time.Duration
	Whitelist     []string
}

// Limiter is the fixed-window counter plus IP allow-list. Server-wide: a
// single instance is shared by every connection on the server.
type Limiter struct {
	mu sync.Mutex

	enabled     bool
	maxRequests int
	window      time.Duration

	counter     int
	windowStart time.Time

	allow map[string]struct{}

	now func() time.Time
}

// New validates cfg (spec §4.7's bounds, only enforced when enabled) and
// returns a ready Limiter.
func New(cfg Config) (*Limiter, liberr.Error) {
	l := &Limiter{
		enabled:     cfg.Enabled,
		maxRequests: cfg.MaxRequests,
		window:      cfg.WindowSeconds,
		allow:       make(map[string]struct{}, len(cfg.Whitelist)),
		now:         time.Now,
	}

	if !cfg.Enabled {
		return l, nil
	}

	if cfg.MaxRequests < minMaxRequests || cfg.MaxRequests > maxMaxRequests {
		return nil, ErrorMaxRequestsOutOfRange.Error(nil)
	}
	if cfg.WindowSeconds < minWindow || cfg.WindowSeconds > maxWindow {
		return nil, ErrorWindowOutOfRange.Error(nil)
	}

	for _, ip := range cfg.Whitelist {
		if net.ParseIP(ip) == nil {
			return nil, ErrorWhitelistEntryInvalid.Error(nil)
		}
		l.allow[ip] = struct{}{}
	}

	l.windowStart = l.now()
	return l, nil
}

// Allow reports whether the request from peerIP is accepted. When rejected,
// it also returns the duration remaining until the current window ends, for
// use as the Retry-After header value.
func (l *Limiter) Allow(peerIP string) (bool, time.Duration) {
	if !l.enabled {
		return true, 0
	}
	if _, ok := l.allow[peerIP]; ok {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.windowStart) >= l.window {
		l.counter = 0
		l.windowStart = now
	}

	if l.counter < l.maxRequests {
		l.counter++
		return true, 0
	}

	retryAfter := l.window - now.Sub(l.windowStart)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return false, retryAfter
}

// Enabled reports whether rate limiting is active.
func (l *Limiter) Enabled() bool {
	return l.enabled
}

// Count returns the number of requests counted in the current window, for
// monitoring/stats snapshots.
func (l *Limiter) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counter
}
