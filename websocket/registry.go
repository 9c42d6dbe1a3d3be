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

package websocket

import (
	"sync"
	"time"
)

// Peer is the minimal surface the registry needs from a live connection to
// drive its heartbeat: a way to send a PING with an opaque payload, and a
// way to close with a code and reason. The connection layer implements it.
type Peer interface {
	SendPing(payload []byte) error
	Close(code int, reason string) error
}

type sessionState struct {
	peer         Peer
	lastActivity time.Time
	pingPending  bool
	pingSentAt   time.Time
}

// Registry tracks every live session on a server so a single periodic
// Sweep can drive the heartbeat and timeout logic spec §4.6 describes,
// instead of each connection running its own timers.
type Registry struct {
	mu  sync.Mutex
	cfg Config

	sessions map[string]*sessionState

	now func() time.Time
}

// NewRegistry returns an empty Registry; cfg's zero fields fall back to
// their package defaults.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg.normalised(),
		sessions: make(map[string]*sessionState),
		now:      time.Now,
	}
}

// Register adds a newly-upgraded session under id, owned by peer.
func (r *Registry) Register(id string, peer Peer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionState{peer: peer, lastActivity: r.now()}
}

// Unregister removes id, e.g. once its connection has closed.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Touch records that a frame was just received on id's connection: it
// clears any pending-ping state and refreshes the idle clock, per spec
// §4.6 ("any frame received clears ping-pending and updates last-activity").
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.lastActivity = r.now()
		s.pingPending = false
	}
}

// Count returns the number of registered sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep is meant to be called roughly once a second by the server's timer
// loop (component I). For every session it either sends a heartbeat PING
// once HeartbeatInterval has elapsed since the last activity, or closes
// the session with 1001 once a pending ping has gone unanswered past
// PingTimeout, or the session has been idle past Timeout.
func (r *Registry) Sweep() {
	r.mu.Lock()
	now := r.now()
	type closeOp struct {
		id     string
		s      *sessionState
		reason string
	}
	var toClose []closeOp
	var toPing []*sessionState

	for id, s := range r.sessions {
		switch {
		case s.pingPending && now.Sub(s.pingSentAt) > r.cfg.PingTimeout:
			toClose = append(toClose, closeOp{id: id, s: s, reason: "ping timeout"})
		case now.Sub(s.lastActivity) > r.cfg.Timeout:
			toClose = append(toClose, closeOp{id: id, s: s, reason: "idle timeout"})
		case !s.pingPending && now.Sub(s.lastActivity) >= r.cfg.HeartbeatInterval:
			s.pingPending = true
			s.pingSentAt = now
			toPing = append(toPing, s)
		}
	}
	for _, op := range toClose {
		delete(r.sessions, op.id)
	}
	r.mu.Unlock()

	for _, s := range toPing {
		_ = s.peer.SendPing(nil)
	}
	for _, op := range toClose {
		_ = op.s.peer.Close(CloseGoingAway, op.reason)
	}
}
