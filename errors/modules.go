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

package errors

const (
	MinPkgCertificate    = 300
	MinPkgConfig         = 500
	MinPkgHttpServer     = 1300
	MinPkgHttpServerPool = 1320
	MinPkgLogger         = 1600
	MinPkgMonitor        = 2000
	MinPkgNetwork        = 2200
	MinPkgRouter         = 2800
	MinPkgStatic         = 3100
	MinPkgStatus         = 3200
	MinPkgVersion        = 3300

	// MinPkgMessage covers the Request/Response data model (component A).
	MinPkgMessage = 3500
	// MinPkgParser covers the HTTP/1.1 incremental parser driver (component B).
	MinPkgParser = 3600
	// MinPkgConnection covers the connection finite-state machine (component C).
	MinPkgConnection = 3700
	// MinPkgMiddleware covers the middleware chain and built-ins (component E).
	MinPkgMiddleware = 3750
	// MinPkgWebsocket covers the WebSocket handshake, frame codec, and registry (component F).
	MinPkgWebsocket = 3800
	// MinPkgRateLimit covers the fixed-window rate limiter (component G).
	MinPkgRateLimit = 3900
	// MinPkgAcceptor covers the acceptor and connection timers (component I).
	MinPkgAcceptor = 3950

	MinAvailable = 4000

	// MIN_AVAILABLE @Deprecated use MinAvailable constant
	MIN_AVAILABLE = MinAvailable
)
