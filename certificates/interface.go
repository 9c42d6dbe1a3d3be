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

// Package certificates loads the server certificate/key pair this module's
// TLS handshake state (spec component C's TLS_HANDSHAKE transition) needs.
// Cipher suite, curve and client-auth selection are left to Go's default
// crypto/tls behaviour: the external interface this module exposes is
// exactly tls.{enabled, cert_file, key_file}.
package certificates

import (
	"crypto/tls"

	liberr "github.com/nabbar/uvhttpd/errors"
)

// TLSConfig holds a loaded certificate/key pair and builds the
// *tls.Config a listener wraps itself with.
type TLSConfig interface {
	// AddCertificatePairFile loads a PEM certificate and key from disk and
	// appends it to the pair list.
	AddCertificatePairFile(keyFile, crtFile string) liberr.Error

	// LenCertificatePair returns how many certificate pairs are loaded.
	LenCertificatePair() int

	// CleanCertificatePair discards every loaded certificate pair.
	CleanCertificatePair()

	// GetCertificatePair returns the loaded pairs as tls.Certificate.
	GetCertificatePair() []tls.Certificate

	// TlsConfig builds a *tls.Config for the given SNI server name using
	// the loaded certificate pairs.
	TlsConfig(serverName string) *tls.Config

	// Clone returns an independent copy of this configuration.
	Clone() TLSConfig
}

// New returns an empty TLSConfig ready to receive certificate pairs.
func New() TLSConfig {
	return &config{
		cert: make([]tls.Certificate, 0),
	}
}
