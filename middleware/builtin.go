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

package middleware

import (
	"strings"

	liblog "github.com/nabbar/uvhttpd/logger"
	"github.com/nabbar/uvhttpd/message"
)

// CORSConfig is the policy a CORS middleware instance emits.
type CORSConfig struct {
	AllowOrigin  string
	AllowMethods string
	AllowHeaders string
}

// CORS returns a middleware that emits Access-Control-Allow-* headers from
// cfg and, for a preflight OPTIONS request (CORS request headers present),
// replies 200 and stops the chain.
func CORS(cfg CORSConfig) Middleware {
	return func(req *message.Request, resp *message.Response, _ *Context) Signal {
		_ = resp.Headers.Set("Access-Control-Allow-Origin", cfg.AllowOrigin)
		_ = resp.Headers.Set("Access-Control-Allow-Methods", cfg.AllowMethods)
		_ = resp.Headers.Set("Access-Control-Allow-Headers", cfg.AllowHeaders)

		if isPreflight(req) {
			resp.Status = 200
			return Stop
		}
		return Continue
	}
}

func isPreflight(req *message.Request) bool {
	if req.Method != message.MethodOptions {
		return false
	}
	_, hasMethod := req.Headers.Get("Access-Control-Request-Method")
	return hasMethod
}

// TokenValidator reports whether a bearer token is acceptable.
type TokenValidator func(token string) bool

// Auth returns a middleware requiring a well-formed `Authorization: Bearer
// <token>` header accepted by validate; otherwise it replies 401 and stops.
func Auth(validate TokenValidator) Middleware {
	return func(req *message.Request, resp *message.Response, _ *Context) Signal {
		auth, ok := req.Headers.Get("Authorization")
		if !ok || !strings.HasPrefix(auth, "Bearer ") {
			return unauthorized(resp)
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == "" || !validate(token) {
			return unauthorized(resp)
		}
		return Continue
	}
}

func unauthorized(resp *message.Response) Signal {
	resp.Status = 401
	resp.Body = []byte("Unauthorized")
	return Stop
}

// ContentTypeGate returns a middleware that, for POST and PUT requests,
// requires the Content-Type header to contain want as a substring;
// otherwise it replies 415 and stops. Other methods pass through untouched.
func ContentTypeGate(want string) Middleware {
	return func(req *message.Request, resp *message.Response, _ *Context) Signal {
		if req.Method != message.MethodPost && req.Method != message.MethodPut {
			return Continue
		}

		ct, ok := req.Headers.Get("Content-Type")
		if !ok || !strings.Contains(ct, want) {
			resp.Status = 415
			resp.Body = []byte("Unsupported Media Type")
			return Stop
		}
		return Continue
	}
}

// Logging returns a middleware that emits one log line per request via
// log and never stops the chain.
func Logging(log liblog.FuncLog, level liblog.Level) Middleware {
	return func(req *message.Request, _ *message.Response, _ *Context) Signal {
		if l := log(); l != nil {
			level.Logf(l, "%s %s", req.Method.String(), req.Path)
		}
		return Continue
	}
}
