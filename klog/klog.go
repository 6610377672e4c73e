/*************************************************************************
 * Copyright 2026 Nanokern Authors. All rights reserved.
 *
 * This software may be modified and distributed under the terms of the
 * BSD 2-clause license. See the LICENSE file for details.
 **************************************************************************/

// Package klog is the kernel's structured logger, slimmed from the ingest
// pipeline logger this project is grounded on. It exists purely for ambient
// visibility: in the core, the kernel logs process registration (when
// DebugEnable is set); the tick and scheduler hot paths never call it.
package klog

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/crewjam/rfc5424"
)

// Level is a log severity, ordered so that lower values are chattier.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	OFF
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return `DEBUG`
	case INFO:
		return `INFO`
	case WARN:
		return `WARN`
	case ERROR:
		return `ERROR`
	case OFF:
		return `OFF`
	}
	return `UNKNOWN`
}

func (l Level) priority() rfc5424.Priority {
	switch l {
	case DEBUG:
		return rfc5424.User | rfc5424.Debug
	case INFO:
		return rfc5424.User | rfc5424.Info
	case WARN:
		return rfc5424.User | rfc5424.Warning
	case ERROR:
		return rfc5424.User | rfc5424.Error
	}
	return rfc5424.User | rfc5424.Debug
}

// DefaultID matches the structured-data ID the teacher's ingest logger uses.
const DefaultID = `nk@1`

var ErrNotOpen = errors.New("klog: logger is not open")

// Logger writes RFC5424-framed lines to a single writer under a mutex, the
// same defer-guarded pattern the teacher's Logger uses for every write.
type Logger struct {
	mtx sync.Mutex
	wtr io.Writer
	lvl Level
	app string
}

// New wraps wtr at INFO level. A nil wtr produces a logger that discards
// everything, which is what the kernel uses by default so a bare
// kernel.New() call never blocks on I/O.
func New(wtr io.Writer, appname string) *Logger {
	if wtr == nil {
		wtr = io.Discard
	}
	return &Logger{wtr: wtr, lvl: INFO, app: appname}
}

// Discard is a Logger that drops every line.
func Discard() *Logger {
	return New(io.Discard, "nanokern")
}

func (l *Logger) SetLevel(lvl Level) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	l.lvl = lvl
}

func (l *Logger) Debug(msg string, sds ...rfc5424.SDParam) { l.output(DEBUG, msg, sds...) }
func (l *Logger) Info(msg string, sds ...rfc5424.SDParam)  { l.output(INFO, msg, sds...) }
func (l *Logger) Warn(msg string, sds ...rfc5424.SDParam)  { l.output(WARN, msg, sds...) }
func (l *Logger) Error(msg string, sds ...rfc5424.SDParam) { l.output(ERROR, msg, sds...) }

// Field builds an rfc5424.SDParam, a tiny convenience so call sites read
// klog.Field("priority", p) instead of spelling out rfc5424.SDParam.
func Field(name string, v interface{}) rfc5424.SDParam {
	return rfc5424.SDParam{Name: name, Value: fmt.Sprintf("%v", v)}
}

func (l *Logger) output(lvl Level, msg string, sds ...rfc5424.SDParam) {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.lvl == OFF || lvl < l.lvl {
		return
	}
	ts := time.Now()
	m := rfc5424.Message{
		Priority:  lvl.priority(),
		Timestamp: ts,
		AppName:   l.app,
		Message:   []byte(msg),
	}
	if len(sds) > 0 {
		m.StructuredData = []rfc5424.StructuredData{{ID: DefaultID, Parameters: sds}}
	}
	b, err := m.MarshalBinary()
	if err != nil {
		return
	}
	line := strings.TrimRight(string(b), "\n\t\r")
	io.WriteString(l.wtr, line)
	io.WriteString(l.wtr, "\n")
}
