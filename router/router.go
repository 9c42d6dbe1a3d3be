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

// Package router implements the fixed-capacity route table: literal and
// `:name`-parameterised path matching with method dispatch. Lookup is a
// linear scan over the route array by design (spec: cache-friendly over a
// small, bounded table rather than a tree).
package router

import (
	"strings"
	"sync"

	liberr "github.com/nabbar/uvhttpd/errors"
	"github.com/nabbar/uvhttpd/message"
)

// DefaultCapacity is the route-table ceiling applied when New is called
// with a non-positive capacity.
const DefaultCapacity = 64

// Handler produces a response for a matched request. It owns neither
// object past the call.
type Handler func(req *message.Request, resp *message.Response)

type route struct {
	pattern  string
	segments []segment
	literal  bool
	method   message.MethodMask
	handler  Handler
}

type segment struct {
	text    string
	capture bool
}

func splitPattern(pattern string) []segment {
	parts := strings.Split(strings.Trim(pattern, "/"), "/")
	segs := make([]segment, 0, len(parts))
	for _, p := range parts {
		if strings.HasPrefix(p, ":") && len(p) > 1 {
			segs = append(segs, segment{text: p[1:], capture: true})
		} else {
			segs = append(segs, segment{text: p})
		}
	}
	return segs
}

func isLiteral(segs []segment) bool {
	for _, s := range segs {
		if s.capture {
			return false
		}
	}
	return true
}

type Param struct {
	name  string
	value string
}

// match reports whether path satisfies segs, returning captured parameters
// for any `:name` segment.
func match(segs []segment, path string) (bool, []Param) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != len(segs) {
		return false, nil
	}

	var params []Param
	for i, s := range segs {
		if s.capture {
			params = append(params, Param{name: s.text, value: parts[i]})
			continue
		}
		if s.text != parts[i] {
			return false, nil
		}
	}
	return true, params
}

// Router is the fixed-capacity route table (spec §4.4, §3 "Route table
// entry"). Zero value is not usable; use New.
type Router struct {
	mu       sync.RWMutex
	routes   []route
	capacity int
	notFound Handler
}

// New returns a Router bounded at capacity routes; a non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int) *Router {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Router{capacity: capacity}
}

// SetNotFound overrides the handler invoked when no route matches a path at
// all (plain 404). A nil Router default handler is not provided; the caller
// (the httpserver component) wires this before accepting connections.
func (r *Router) SetNotFound(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFound = h
}

// Register adds a route. pattern segments beginning with `:` capture that
// segment; every other segment must match literally. Fails with
// ErrorRouteTableFull once the table is at capacity, or
// ErrorRoutePatternInvalid for an empty pattern.
func (r *Router) Register(mask message.MethodMask, pattern string, h Handler) liberr.Error {
	if pattern == "" || h == nil {
		return ErrorRoutePatternInvalid.Error(nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.routes) >= r.capacity {
		return ErrorRouteTableFull.Error(nil)
	}

	segs := splitPattern(pattern)
	r.routes = append(r.routes, route{
		pattern:  pattern,
		segments: segs,
		literal:  isLiteral(segs),
		method:   mask,
		handler:  h,
	})
	return nil
}

// MatchResult is the outcome of Match.
type MatchResult uint8

const (
	// MatchOK means a route matched both path and method.
	MatchOK MatchResult = iota
	// MatchNotFound means no registered route matches the path at all.
	MatchNotFound
	// MatchMethodNotAllowed means at least one route matches the path but
	// none accept the request's method.
	MatchMethodNotAllowed
)

// Match selects the handler for (method, path) per spec §4.4's rule: first
// literal match; if none, first parameterised match in insertion order.
// Method mask filters candidates within that ordering; a path match with no
// accepting method yields MatchMethodNotAllowed rather than MatchNotFound.
func (r *Router) Match(method message.Method, path string) (Handler, []Param, MatchResult) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var literals, params []int
	captures := make([][]Param, len(r.routes))

	for i := range r.routes {
		ok, ps := match(r.routes[i].segments, path)
		if !ok {
			continue
		}
		captures[i] = ps
		if r.routes[i].literal {
			literals = append(literals, i)
		} else {
			params = append(params, i)
		}
	}

	ordered := append(literals, params...)
	if len(ordered) == 0 {
		return r.notFound, nil, MatchNotFound
	}

	for _, i := range ordered {
		if r.routes[i].method.Match(method) {
			return r.routes[i].handler, captures[i], MatchOK
		}
	}

	return nil, nil, MatchMethodNotAllowed
}

// Len returns the number of registered routes.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Param name/value accessors for callers that received a Param
// slice from Match and want to apply it to a message.Request.
func (p Param) Name() string  { return p.name }
func (p Param) Value() string { return p.value }

// ApplyParams writes every captured parameter from Match into req.
func ApplyParams(req *message.Request, params []Param) liberr.Error {
	for _, p := range params {
		if err := req.SetParam(p.name, p.value); err != nil {
			return err
		}
	}
	return nil
}
