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

// Package logger provides the levelled logging contract shared by every
// component of this server: connection lifecycle transitions, parser
// errors, rate-limit rejections, cache evictions and WebSocket heartbeat
// failures are all reported through a Logger obtained from a FuncLog.
package logger

import (
	"math"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is a uint8 severity ordered from most to least severe (NilLevel
// disables logging entirely and cannot be produced by GetLevelString).
type Level uint8

const (
	PanicLevel Level = iota
	FatalLevel
	ErrorLevel
	WarnLevel
	InfoLevel
	DebugLevel
	NilLevel
)

// GetLevelListString returns the lowercase names of every parseable level.
func GetLevelListString() []string {
	return []string{
		strings.ToLower(PanicLevel.String()),
		strings.ToLower(FatalLevel.String()),
		strings.ToLower(ErrorLevel.String()),
		strings.ToLower(WarnLevel.String()),
		strings.ToLower(InfoLevel.String()),
		strings.ToLower(DebugLevel.String()),
	}
}

// GetLevelString parses a case-insensitive level name, defaulting to InfoLevel.
func GetLevelString(l string) Level {
	switch {
	case strings.EqualFold(PanicLevel.String(), l):
		return PanicLevel
	case strings.EqualFold(FatalLevel.String(), l):
		return FatalLevel
	case strings.EqualFold(ErrorLevel.String(), l):
		return ErrorLevel
	case strings.EqualFold(WarnLevel.String(), l):
		return WarnLevel
	case strings.EqualFold(InfoLevel.String(), l):
		return InfoLevel
	case strings.EqualFold(DebugLevel.String(), l):
		return DebugLevel
	}

	return InfoLevel
}

func (l Level) Uint8() uint8 {
	return uint8(l)
}

func (l Level) String() string {
	//nolint exhaustive
	switch l {
	case DebugLevel:
		return "Debug"
	case InfoLevel:
		return "Info"
	case WarnLevel:
		return "Warning"
	case ErrorLevel:
		return "Error"
	case FatalLevel:
		return "Fatal Error"
	case PanicLevel:
		return "Critical Error"
	case NilLevel:
		return ""
	}

	return "unknown"
}

// Logrus maps the level to its logrus equivalent; NilLevel and unknown
// values map to math.MaxInt32 so nothing is ever emitted for them.
func (l Level) Logrus() logrus.Level {
	switch l {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	case PanicLevel:
		return logrus.PanicLevel
	default:
		return math.MaxInt32
	}
}

// Logf builds an entry at this level on the given logger, formats message
// with args and logs it immediately. It is the call site every other
// package in this module uses to report events: WarnLevel.Logf(log, "...").
func (l Level) Logf(log Logger, message string, args ...interface{}) {
	if log == nil || l == NilLevel {
		return
	}

	log.Entry(l, message, args...).Log()
}
