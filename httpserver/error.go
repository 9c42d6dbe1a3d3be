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

import "github.com/nabbar/uvhttpd/errors"

const (
	ErrorConfigValidate errors.CodeError = iota + errors.MinPkgHttpServer
	ErrorPortInUse
	ErrorAlreadyRunning
	ErrorNotRunning
	ErrorListen
	ErrorTLSInit
	ErrorStaticInit
	ErrorLimiterInit
	ErrorRouterInit
	ErrorShutdownTimeout
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorConfigValidate)
	errors.RegisterIdFctMessage(ErrorConfigValidate, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorConfigValidate:
		return "httpserver: configuration is not valid"
	case ErrorPortInUse:
		return "httpserver: listen address is still in use"
	case ErrorAlreadyRunning:
		return "httpserver: server is already running"
	case ErrorNotRunning:
		return "httpserver: server is not running"
	case ErrorListen:
		return "httpserver: failed to open the listening socket"
	case ErrorTLSInit:
		return "httpserver: failed to build the TLS configuration"
	case ErrorStaticInit:
		return "httpserver: failed to initialise the static file service"
	case ErrorLimiterInit:
		return "httpserver: failed to initialise the rate limiter"
	case ErrorRouterInit:
		return "httpserver: failed to register a route"
	case ErrorShutdownTimeout:
		return "httpserver: shutdown timed out waiting for connections to drain"
	}

	return ""
}
