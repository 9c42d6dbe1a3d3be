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
	"net/url"
	"strings"

	"github.com/nabbar/uvhttpd/message"
)

// AuthResult is the outcome of an Authenticator decision (spec §4.6): a
// handshake is either accepted, rejected (the caller must answer 403), or
// failed with an internal error (the caller must answer 500).
type AuthResult int

const (
	AuthAccept AuthResult = iota
	AuthReject
	AuthError
)

// TokenValidator checks a token extracted from the handshake request
// against whatever store or policy a path requires. A non-nil error is
// treated as AuthError, never AuthReject.
type TokenValidator func(path, token string) (bool, error)

// Authenticator applies a per-path token check plus an IP allow/deny list
// to incoming WebSocket upgrade requests. Evaluation order is deny before
// allow before token, matching the fixed-window limiter's IP-list
// precedent (ratelimit.Limiter.Allow): deny always wins.
type Authenticator struct {
	validator TokenValidator
	allow     map[string]struct{}
	deny      map[string]struct{}
}

// NewAuthenticator returns an Authenticator. A nil validator accepts every
// token (including an absent one); empty allow/deny lists impose no IP
// restriction.
func NewAuthenticator(validator TokenValidator, allow, deny []string) *Authenticator {
	a := &Authenticator{
		validator: validator,
		allow:     make(map[string]struct{}, len(allow)),
		deny:      make(map[string]struct{}, len(deny)),
	}
	for _, ip := range allow {
		a.allow[ip] = struct{}{}
	}
	for _, ip := range deny {
		a.deny[ip] = struct{}{}
	}
	return a
}

// Authorize evaluates req (whose path is taken as the protected resource)
// against remoteIP and the handshake's token, in deny/allow/token order.
func (a *Authenticator) Authorize(req *message.Request, remoteIP string) AuthResult {
	if _, blocked := a.deny[remoteIP]; blocked {
		return AuthReject
	}
	if len(a.allow) > 0 {
		if _, permitted := a.allow[remoteIP]; !permitted {
			return AuthReject
		}
	}

	if a.validator == nil {
		return AuthAccept
	}

	ok, err := a.validator(req.Path, extractToken(req))
	if err != nil {
		return AuthError
	}
	if !ok {
		return AuthReject
	}
	return AuthAccept
}

// extractToken pulls the bearer token from either the Authorization
// header (stripping a "Bearer " prefix) or, failing that, the "token"
// query parameter, per spec §4.6.
func extractToken(req *message.Request) string {
	if auth, ok := req.Headers.Get("Authorization"); ok && auth != "" {
		if rest, found := strings.CutPrefix(auth, "Bearer "); found {
			return rest
		}
		return auth
	}

	values, err := url.ParseQuery(req.Query)
	if err != nil {
		return ""
	}
	return values.Get("token")
}
