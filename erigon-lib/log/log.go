// Copyright 2024 The Erigon Authors
// This file is part of Erigon.
//
// Erigon is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Erigon is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Erigon. If not, see <http://www.gnu.org/licenses/>.

// Package log is a small structured logger in the shape the teacher's
// own erigon-lib/log/v3 package is called throughout the pack:
// log.Info("msg", "key", value, ...), log.Warn(...), log.Error(...),
// as in the wider examples' "State root" / "opening preimage file" log
// calls.
// File rotation uses the teacher's own gopkg.in/natefinch/lumberjack.v2
// dependency.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

type Level int

const (
	LvlError Level = iota
	LvlWarn
	LvlInfo
	LvlDebug
	LvlTrace
)

var levelNames = map[Level]string{
	LvlError: "EROR", LvlWarn: "WARN", LvlInfo: "INFO", LvlDebug: "DBUG", LvlTrace: "TRACE",
}

var (
	mu     sync.Mutex
	out    io.Writer = os.Stderr
	minLvl           = LvlInfo
)

// SetOutput redirects the root logger's output, e.g. to a lumberjack.Logger
// for size/age-based rotation in long-running nodes.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// NewRotatingFile returns a lumberjack-backed writer, the teacher's own
// rotation policy shape (size in MB, max backups, max age in days).
func NewRotatingFile(path string, maxSizeMB, maxBackups, maxAgeDays int) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}

func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	minLvl = l
}

func write(l Level, msg string, ctx ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	if l > minLvl {
		return
	}
	ts := time.Now().Format("2006-01-02T15:04:05-0700")
	fmt.Fprintf(out, "%s [%s] %s", ts, levelNames[l], msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		fmt.Fprintf(out, " %v=%v", ctx[i], ctx[i+1])
	}
	fmt.Fprintln(out)
}

func Error(msg string, ctx ...interface{}) { write(LvlError, msg, ctx...) }
func Warn(msg string, ctx ...interface{})  { write(LvlWarn, msg, ctx...) }
func Info(msg string, ctx ...interface{})  { write(LvlInfo, msg, ctx...) }
func Debug(msg string, ctx ...interface{}) { write(LvlDebug, msg, ctx...) }
func Trace(msg string, ctx ...interface{}) { write(LvlTrace, msg, ctx...) }

// Logger is a handle carrying a fixed set of context pairs, for
// components that log repeatedly with the same key (e.g. "stage", "blockchain").
type Logger struct {
	ctx []interface{}
}

func New(ctx ...interface{}) *Logger { return &Logger{ctx: ctx} }

func (lg *Logger) with(extra []interface{}) []interface{} {
	return append(append([]interface{}{}, lg.ctx...), extra...)
}

func (lg *Logger) Info(msg string, ctx ...interface{})  { write(LvlInfo, msg, lg.with(ctx)...) }
func (lg *Logger) Warn(msg string, ctx ...interface{})  { write(LvlWarn, msg, lg.with(ctx)...) }
func (lg *Logger) Error(msg string, ctx ...interface{}) { write(LvlError, msg, lg.with(ctx)...) }
func (lg *Logger) Debug(msg string, ctx ...interface{}) { write(LvlDebug, msg, lg.with(ctx)...) }
