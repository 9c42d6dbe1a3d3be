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

import "time"

// Default bounds (spec §4.6) applied when a Config field is left zero.
const (
	DefaultMaxFrameSize      int64         = 16 * 1024 * 1024
	DefaultMaxMessageSize    int64         = 64 * 1024 * 1024
	DefaultTimeout           time.Duration = 60 * time.Second
	DefaultHeartbeatInterval time.Duration = 30 * time.Second
	DefaultPingTimeout       time.Duration = 10 * time.Second
)

// Config mirrors config.WebSocket plus the frame/message size bounds,
// which the top-level configuration record leaves at their package
// defaults rather than exposing as tunables (see DESIGN.md).
type Config struct {
	Timeout           time.Duration
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	MaxFrameSize      int64
	MaxMessageSize    int64
}

// normalised returns a copy of c with every zero field replaced by its
// package default.
func (c Config) normalised() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.PingTimeout <= 0 {
		c.PingTimeout = DefaultPingTimeout
	}
	if c.MaxFrameSize <= 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	return c
}
