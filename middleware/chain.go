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

// Package middleware implements the ordered, short-circuiting middleware
// pipeline (spec §4.5) in both shapes the spec requires: a static array
// (Chain) and a dynamic per-path-prefix registry (DynamicChain), plus the
// four built-in middlewares (CORS, auth, content-type gate, logging).
package middleware

import (
	"strings"
	"sync"

	liberr "github.com/nabbar/uvhttpd/errors"
	"github.com/nabbar/uvhttpd/message"
)

// Signal is the outcome of a single middleware invocation.
type Signal uint8

const (
	// Continue means the chain should proceed to the next middleware, or
	// to the route handler if this was the last one.
	Continue Signal = iota
	// Stop means this middleware has already produced a complete response;
	// the chain terminates without invoking the route handler.
	Stop
)

// Middleware receives the request, response, and a stack-scoped Context and
// returns Continue or Stop.
type Middleware func(req *message.Request, resp *message.Response, ctx *Context) Signal

// Context is scoped to a single request; it is never shared across
// requests, but it is shared across every Chain.Run invoked for that
// request (the static chain, then the matching dynamic chain), so a
// middleware in one can see values a middleware in the other set.
// Middlewares use it to pass values down the chain and to register cleanup
// closures that each run exactly once, regardless of whether their chain
// completed normally or was short-circuited by Stop.
type Context struct {
	values   map[string]interface{}
	cleanups []func()
	ranUpTo  int
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{values: make(map[string]interface{}, 4)}
}

// Set stores a value under key.
func (c *Context) Set(key string, v interface{}) {
	c.values[key] = v
}

// Get retrieves a value previously stored under key.
func (c *Context) Get(key string) (interface{}, bool) {
	v, ok := c.values[key]
	return v, ok
}

// SetCleanup registers a closure that runs exactly once, before Run returns
// from the chain that registered it. Multiple calls (including across
// different chains sharing this Context) accumulate rather than replace.
func (c *Context) SetCleanup(fn func()) {
	c.cleanups = append(c.cleanups, fn)
}

// runCleanup runs every cleanup registered since the last call, so a
// Context reused across several Chain.Run calls (runHandler's static chain
// followed by its dynamic chain) never skips a closure registered by the
// later chain, nor reruns one already executed by an earlier one.
func (c *Context) runCleanup() {
	for ; c.ranUpTo < len(c.cleanups); c.ranUpTo++ {
		c.cleanups[c.ranUpTo]()
	}
}

// MaxChainLength bounds how many middlewares a single Chain accepts, so a
// misconfigured dynamic registration cannot grow a per-request chain
// without limit.
const MaxChainLength = 64

// Chain is the ordered static array of middleware functions.
type Chain struct {
	mw []Middleware
}

// NewChain returns a Chain running mw in order.
func NewChain(mw ...Middleware) *Chain {
	return &Chain{mw: mw}
}

// Append adds m to the end of the chain, failing once MaxChainLength is
// reached.
func (c *Chain) Append(m Middleware) liberr.Error {
	if len(c.mw) >= MaxChainLength {
		return ErrorChainCapacityExceeded.Error(nil)
	}
	c.mw = append(c.mw, m)
	return nil
}

// Run executes every middleware in order, stopping at the first Stop, then
// runs the context's cleanup closure exactly once before returning.
func (c *Chain) Run(req *message.Request, resp *message.Response, ctx *Context) Signal {
	defer ctx.runCleanup()

	for _, m := range c.mw {
		if m(req, resp, ctx) == Stop {
			return Stop
		}
	}
	return Continue
}

type prefixEntry struct {
	prefix string
	chain  *Chain
}

// DynamicChain registers middleware chains per path prefix, the dynamic
// counterpart to Chain's static array; both reduce to the same Run
// semantics, differing only in where the sequence is stored.
type DynamicChain struct {
	mu      sync.RWMutex
	entries []prefixEntry
}

// NewDynamicChain returns an empty DynamicChain.
func NewDynamicChain() *DynamicChain {
	return &DynamicChain{}
}

// Register appends mw under the given path prefix. Multiple registrations
// under the same prefix accumulate into one chain, in registration order.
func (d *DynamicChain) Register(prefix string, mw ...Middleware) liberr.Error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.entries {
		if d.entries[i].prefix == prefix {
			for _, m := range mw {
				if err := d.entries[i].chain.Append(m); err != nil {
					return err
				}
			}
			return nil
		}
	}

	if len(mw) > MaxChainLength {
		return ErrorChainCapacityExceeded.Error(nil)
	}

	d.entries = append(d.entries, prefixEntry{prefix: prefix, chain: NewChain(mw...)})
	return nil
}

// For returns the combined chain of every registered prefix that matches
// path, in registration order.
func (d *DynamicChain) For(path string) *Chain {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := NewChain()
	for _, e := range d.entries {
		if strings.HasPrefix(path, e.prefix) {
			out.mw = append(out.mw, e.chain.mw...)
		}
	}
	return out
}
