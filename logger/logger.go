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

package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging contract every component of this server depends on.
// The concrete backend is an external collaborator: components never
// import logrus directly, they call through this interface.
type Logger interface {
	// Entry starts a new log record at the given level. Returns an Entry
	// whose Log is a no-op when the level is below the configured
	// threshold or equal to NilLevel.
	Entry(lvl Level, message string, args ...interface{}) *Entry

	// SetLevel changes the minimum level that Entry will actually emit.
	SetLevel(lvl Level)

	// GetLevel returns the current minimum emitted level.
	GetLevel() Level

	// SetOutput redirects where formatted entries are written.
	SetOutput(out io.Writer)
}

// FuncLog returns the Logger a component should use; it is provided by the
// embedding application, not constructed internally, so the logging backend
// stays an external collaborator as far as this module's components know.
type FuncLog func() Logger

type logger struct {
	mu  sync.RWMutex
	log *logrus.Logger
	lvl Level
}

// New builds a Logger backed by logrus, writing to out at the given
// starting level.
func New(out io.Writer, lvl Level) Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if out != nil {
		l.SetOutput(out)
	}

	l.SetLevel(lvl.Logrus())

	return &logger{
		log: l,
		lvl: lvl,
	}
}

func (o *logger) Entry(lvl Level, message string, args ...interface{}) *Entry {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if lvl == NilLevel || lvl > o.lvl {
		return &Entry{}
	}

	return newEntry(o.log, lvl, message, args...)
}

func (o *logger) SetLevel(lvl Level) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lvl = lvl
	o.log.SetLevel(lvl.Logrus())
}

func (o *logger) GetLevel() Level {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.lvl
}

func (o *logger) SetOutput(out io.Writer) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if out != nil {
		o.log.SetOutput(out)
	}
}
