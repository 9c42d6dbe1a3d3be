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
	"fmt"

	"github.com/sirupsen/logrus"
)

// Fields is a flat set of structured key/value pairs attached to an Entry.
type Fields map[string]interface{}

// Entry is a single log record under construction. Callers chain field and
// error setters before calling Log, mirroring logrus.Entry's builder style.
type Entry struct {
	log *logrus.Logger
	lvl Level
	msg string
	fld Fields
	err []error
}

// FieldAdd attaches a single key/value pair to the entry.
func (e *Entry) FieldAdd(key string, val interface{}) *Entry {
	if e == nil {
		return e
	}

	if e.fld == nil {
		e.fld = make(Fields)
	}

	e.fld[key] = val
	return e
}

// FieldMerge copies every key/value pair of fields onto the entry.
func (e *Entry) FieldMerge(fields Fields) *Entry {
	if e == nil {
		return e
	}

	if e.fld == nil {
		e.fld = make(Fields)
	}

	for k, v := range fields {
		e.fld[k] = v
	}

	return e
}

// ErrorAdd attaches one or more errors to the entry, skipping nil values.
func (e *Entry) ErrorAdd(err ...error) *Entry {
	if e == nil {
		return e
	}

	for _, er := range err {
		if er != nil {
			e.err = append(e.err, er)
		}
	}

	return e
}

// Log emits the entry at its configured level. A nil receiver, or the empty
// Entry a Logger returns for NilLevel or a suppressed level, is a no-op.
func (e *Entry) Log() {
	if e == nil || e.log == nil || e.lvl == NilLevel {
		return
	}

	fields := make(logrus.Fields, len(e.fld)+1)
	for k, v := range e.fld {
		fields[k] = v
	}

	if len(e.err) > 0 {
		msgs := make([]string, 0, len(e.err))
		for _, er := range e.err {
			msgs = append(msgs, er.Error())
		}
		fields["errors"] = msgs
	}

	e.log.WithFields(fields).Log(e.lvl.Logrus(), e.msg)
}

func newEntry(log *logrus.Logger, lvl Level, message string, args ...interface{}) *Entry {
	return &Entry{
		log: log,
		lvl: lvl,
		msg: fmt.Sprintf(message, args...),
	}
}
