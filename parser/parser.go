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

// Package parser implements the incremental HTTP/1.1 request parser driver
// (spec §4.2): a byte-at-a-time state machine wrapping six callbacks
// (message-begin, url, header-field, header-value, body,
// message-complete), fed arbitrarily-sized chunks from the connection's
// read buffer. Header and URL tokens accumulate correctly across Feed
// calls even when a single token is split across two reads.
package parser

import (
	"strconv"
	"strings"

	liberr "github.com/nabbar/uvhttpd/errors"
)

// MaxURLLen mirrors message.MaxURLSize: requests with a longer URL fail
// to parse.
const MaxURLLen = 2048

// MaxHeaders mirrors message.MaxHeaders.
const MaxHeaders = 32

type state int

const (
	stateMethod state = iota
	stateURL
	stateVersion
	stateRequestLineCR
	stateRequestLineLF
	stateHeaderName
	stateHeaderColon
	stateHeaderValueLWS
	stateHeaderValue
	stateHeaderValueCR
	stateHeaderLineLF
	stateHeadersDoneCR
	stateBodyContentLength
	stateChunkSize
	stateChunkSizeCR
	stateChunkSizeLF
	stateChunkData
	stateChunkDataCR
	stateChunkDataLF
	stateChunkTrailerCR
	stateChunkTrailerLF
	stateDone
	stateErrored
)

// Callbacks mirrors the six-callback shape spec §4.2 names. A non-nil
// return from any callback aborts parsing with ErrorCallbackFailed; the
// caller (the connection FSM) is expected to transition to CLOSING and
// attempt a 400 write. The []byte arguments to OnURL/OnHeaderField/
// OnHeaderValue/OnBody alias the Parser's internal buffers and are only
// valid for the duration of the call; a callback that needs to keep the
// data must copy it (message.Request's setters do this via string(...)).
type Callbacks struct {
	OnMessageBegin    func() error
	OnURL             func(url []byte) error
	OnHeaderField     func(name []byte) error
	OnHeaderValue     func(value []byte) error
	OnBody            func(chunk []byte) error
	OnMessageComplete func() error
}

// Parser is the per-connection incremental driver. It is reset (not
// reallocated) between keep-alive requests on the same connection.
type Parser struct {
	cb          Callbacks
	maxBodySize int64

	state state

	methodBuf  []byte
	urlBuf     []byte
	versionBuf []byte

	fieldBuf []byte
	valueBuf []byte

	headerCount    int
	sawTransferEnc bool
	chunkedBody    bool
	contentLength  int64
	haveLength     bool

	bodyRead       int64
	chunkRemaining int64

	begun bool
}

// New returns a Parser ready for a first request. maxBodySize <= 0 falls
// back to message.DefaultMaxBodySize's value (1 MiB).
func New(cb Callbacks, maxBodySize int64) *Parser {
	if maxBodySize <= 0 {
		maxBodySize = 1024 * 1024
	}
	return &Parser{cb: cb, maxBodySize: maxBodySize}
}

// Reset clears all per-message state for reuse on a keep-alive connection.
func (p *Parser) Reset() {
	p.state = stateMethod
	p.methodBuf = p.methodBuf[:0]
	p.urlBuf = p.urlBuf[:0]
	p.versionBuf = p.versionBuf[:0]
	p.fieldBuf = p.fieldBuf[:0]
	p.valueBuf = p.valueBuf[:0]
	p.headerCount = 0
	p.sawTransferEnc = false
	p.chunkedBody = false
	p.contentLength = 0
	p.haveLength = false
	p.bodyRead = 0
	p.chunkRemaining = 0
	p.begun = false
}

// Done reports whether message-complete has already fired for the current
// message.
func (p *Parser) Done() bool {
	return p.state == stateDone
}

// Chunked reports whether the current message used
// Transfer-Encoding: chunked.
func (p *Parser) Chunked() bool {
	return p.chunkedBody
}

// Feed processes as much of data as the current message needs, invoking
// callbacks as tokens complete. It returns a liberr.Error on any
// protocol violation or callback rejection; the connection FSM transitions
// to CLOSING on a non-nil return (spec §4.2, §4.3).
func (p *Parser) Feed(data []byte) liberr.Error {
	if !p.begun {
		p.begun = true
		if p.cb.OnMessageBegin != nil {
			if err := p.cb.OnMessageBegin(); err != nil {
				p.state = stateErrored
				return ErrorCallbackFailed.Error(err)
			}
		}
	}

	for len(data) > 0 {
		switch p.state {
		case stateDone, stateErrored:
			return nil

		case stateMethod:
			i := indexByte(data, ' ')
			if i < 0 {
				p.methodBuf = append(p.methodBuf, data...)
				return nil
			}
			p.methodBuf = append(p.methodBuf, data[:i]...)
			data = data[i+1:]
			p.state = stateURL

		case stateURL:
			i := indexByte(data, ' ')
			if i < 0 {
				if len(p.urlBuf)+len(data) > MaxURLLen {
					p.state = stateErrored
					return ErrorURLTooLong.Error(nil)
				}
				p.urlBuf = append(p.urlBuf, data...)
				return nil
			}
			if len(p.urlBuf)+i > MaxURLLen {
				p.state = stateErrored
				return ErrorURLTooLong.Error(nil)
			}
			p.urlBuf = append(p.urlBuf, data[:i]...)
			data = data[i+1:]
			if p.cb.OnURL != nil {
				if err := p.cb.OnURL(p.urlBuf); err != nil {
					p.state = stateErrored
					return ErrorCallbackFailed.Error(err)
				}
			}
			p.state = stateVersion

		case stateVersion:
			i := indexByte(data, '\r')
			if i < 0 {
				p.versionBuf = append(p.versionBuf, data...)
				return nil
			}
			p.versionBuf = append(p.versionBuf, data[:i]...)
			data = data[i+1:]
			p.state = stateRequestLineLF

		case stateRequestLineLF:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedRequestLine.Error(nil)
			}
			data = data[1:]
			p.state = stateHeaderName

		case stateHeaderName:
			if data[0] == '\r' {
				p.state = stateHeadersDoneCR
				data = data[1:]
				continue
			}
			i := indexByte(data, ':')
			if i < 0 {
				p.fieldBuf = append(p.fieldBuf, data...)
				return nil
			}
			if p.headerCount >= MaxHeaders {
				p.state = stateErrored
				return ErrorHeaderTableFull.Error(nil)
			}
			p.fieldBuf = append(p.fieldBuf, data[:i]...)
			data = data[i+1:]
			p.state = stateHeaderValueLWS

		case stateHeaderValueLWS:
			j := 0
			for j < len(data) && (data[j] == ' ' || data[j] == '\t') {
				j++
			}
			data = data[j:]
			if len(data) == 0 {
				return nil
			}
			p.state = stateHeaderValue

		case stateHeaderValue:
			i := indexByte(data, '\r')
			if i < 0 {
				p.valueBuf = append(p.valueBuf, data...)
				return nil
			}
			p.valueBuf = append(p.valueBuf, data[:i]...)
			data = data[i+1:]
			p.state = stateHeaderLineLF

		case stateHeaderLineLF:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedHeaderLine.Error(nil)
			}
			data = data[1:]

			if err := p.completeHeader(); err != nil {
				p.state = stateErrored
				return err
			}

			p.headerCount++
			p.fieldBuf = p.fieldBuf[:0]
			p.valueBuf = p.valueBuf[:0]
			p.state = stateHeaderName

		case stateHeadersDoneCR:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedHeaderLine.Error(nil)
			}
			data = data[1:]
			if err := p.enterBody(); err != nil {
				p.state = stateErrored
				return err
			}

		case stateBodyContentLength:
			remaining := p.contentLength - p.bodyRead
			n := int64(len(data))
			if n > remaining {
				n = remaining
			}
			if n > 0 {
				if err := p.emitBody(data[:n]); err != nil {
					return err
				}
				p.bodyRead += n
				data = data[n:]
			}
			if p.bodyRead >= p.contentLength {
				return p.complete()
			}
			return nil

		case stateChunkSize:
			i := indexByte(data, '\r')
			if i < 0 {
				p.valueBuf = append(p.valueBuf, data...)
				return nil
			}
			p.valueBuf = append(p.valueBuf, data[:i]...)
			size, err := parseChunkSize(p.valueBuf)
			p.valueBuf = p.valueBuf[:0]
			if err != nil {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(err)
			}
			data = data[i+1:]
			p.chunkRemaining = size
			p.state = stateChunkSizeLF

		case stateChunkSizeLF:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(nil)
			}
			data = data[1:]
			if p.chunkRemaining == 0 {
				p.state = stateChunkTrailerCR
			} else {
				p.state = stateChunkData
			}

		case stateChunkData:
			n := int64(len(data))
			if n > p.chunkRemaining {
				n = p.chunkRemaining
			}
			if n > 0 {
				if err := p.emitBody(data[:n]); err != nil {
					return err
				}
				p.bodyRead += n
				p.chunkRemaining -= n
				data = data[n:]
			}
			if p.chunkRemaining == 0 {
				p.state = stateChunkDataCR
			}

		case stateChunkDataCR:
			if data[0] != '\r' {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(nil)
			}
			data = data[1:]
			p.state = stateChunkDataLF

		case stateChunkDataLF:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(nil)
			}
			data = data[1:]
			p.state = stateChunkSize

		case stateChunkTrailerCR:
			if data[0] != '\r' {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(nil)
			}
			data = data[1:]
			p.state = stateChunkTrailerLF

		case stateChunkTrailerLF:
			if data[0] != '\n' {
				p.state = stateErrored
				return ErrorMalformedChunk.Error(nil)
			}
			data = data[1:]
			return p.complete()

		default:
			return nil
		}
	}

	return nil
}

func (p *Parser) completeHeader() liberr.Error {
	name := string(p.fieldBuf)
	value := string(p.valueBuf)

	if strings.EqualFold(name, "Content-Length") {
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err == nil && n >= 0 {
			p.contentLength = n
			p.haveLength = true
		}
	}
	if strings.EqualFold(name, "Transfer-Encoding") && strings.Contains(strings.ToLower(value), "chunked") {
		p.sawTransferEnc = true
	}

	if p.cb.OnHeaderField != nil {
		if err := p.cb.OnHeaderField(p.fieldBuf); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	}
	if p.cb.OnHeaderValue != nil {
		if err := p.cb.OnHeaderValue(p.valueBuf); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	}
	return nil
}

// enterBody decides, once headers are fully read, whether a body follows
// and via which framing (spec §6: Content-Length or chunked, decode only).
func (p *Parser) enterBody() liberr.Error {
	switch {
	case p.sawTransferEnc:
		p.chunkedBody = true
		p.state = stateChunkSize
		return nil
	case p.haveLength && p.contentLength > 0:
		if p.contentLength > p.maxBodySize {
			return ErrorBodyTooLarge.Error(nil)
		}
		p.state = stateBodyContentLength
		return nil
	default:
		return p.complete()
	}
}

func (p *Parser) emitBody(chunk []byte) liberr.Error {
	if p.bodyRead+int64(len(chunk)) > p.maxBodySize {
		return ErrorBodyTooLarge.Error(nil)
	}
	if p.cb.OnBody != nil {
		if err := p.cb.OnBody(chunk); err != nil {
			p.state = stateErrored
			return ErrorCallbackFailed.Error(err)
		}
	}
	return nil
}

func (p *Parser) complete() liberr.Error {
	p.state = stateDone
	if p.cb.OnMessageComplete != nil {
		if err := p.cb.OnMessageComplete(); err != nil {
			return ErrorCallbackFailed.Error(err)
		}
	}
	return nil
}

// Method returns the accumulated request-line method token.
func (p *Parser) Method() string {
	return string(p.methodBuf)
}

// MinorVersion returns the HTTP minor version parsed from the request
// line's "HTTP/1.x" token (1 for HTTP/1.1, 0 otherwise), for
// message.Request.KeepAlive.
func (p *Parser) MinorVersion() int {
	if strings.HasSuffix(string(p.versionBuf), "1.1") {
		return 1
	}
	return 0
}

func indexByte(data []byte, c byte) int {
	for i := 0; i < len(data); i++ {
		if data[i] == c {
			return i
		}
	}
	return -1
}

func parseChunkSize(data []byte) (int64, error) {
	s := data
	if i := indexByte(data, ';'); i >= 0 {
		s = data[:i]
	}
	return strconv.ParseInt(strings.TrimSpace(string(s)), 16, 64)
}
