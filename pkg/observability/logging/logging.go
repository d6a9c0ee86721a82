/*
 * Copyright 2024 The JWX Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package logging provides the jwx Logger, a logfmt logger backed by go-kit
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/jwx-server/jwx/pkg/observability/logging/level"
	"github.com/jwx-server/jwx/pkg/observability/logging/options"

	kitlog "github.com/go-kit/log"
	kitlevel "github.com/go-kit/log/level"
	"github.com/go-stack/stack"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

var _ Logger = &logger{}

// AppName is the value of the app field on every log line
var AppName = "jwx"

type Logger interface {
	//
	SetLogLevel(level.Level)
	Level() level.Level
	Close()
	//
	Log(logLevel level.Level, event string, detail Pairs)
	Debug(event string, detail Pairs)
	Info(event string, detail Pairs)
	Warn(event string, detail Pairs)
	Error(event string, detail Pairs)
	Fatal(code int, event string, detail Pairs)
	//
	LogOnce(logLevel level.Level, key, event string, detail Pairs) bool
	DebugOnce(key, event string, detail Pairs) bool
	InfoOnce(key, event string, detail Pairs) bool
	WarnOnce(key, event string, detail Pairs) bool
	ErrorOnce(key, event string, detail Pairs) bool
	//
	HasLoggedOnce(logLevel level.Level, key string) bool
	HasWarnedOnce(key string) bool
}

// Pairs represents a key=value pair that helps to describe a log event
type Pairs map[string]any

// New returns a Logger for the provided logging configuration. The
// returned Logger will write to files distinguished from other Loggers by the
// instance string.
func New(o *options.Options, instance string) Logger {
	if o == nil {
		o = options.New()
	}
	var wr io.Writer
	if o.LogFile == "" {
		wr = os.Stdout
	} else {
		logFile := o.LogFile
		if instance != "" {
			logFile = strings.Replace(logFile, ".log", "."+instance+".log", 1)
		}
		wr = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    256,  // megabytes
			MaxBackups: 80,   // 256 megs @ 80 backups is 20GB of Logs
			MaxAge:     7,    // days
			Compress:   true, // Compress Rolled Backups
		}
	}
	return StreamLogger(wr, level.Level(o.LogLevel))
}

// ConsoleLogger returns a Logger that prints log events to stdout
func ConsoleLogger(logLevel level.Level) Logger {
	return StreamLogger(os.Stdout, logLevel)
}

// StreamLogger returns a Logger that prints log events to w
func StreamLogger(w io.Writer, logLevel level.Level) Logger {
	base := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	base = kitlog.With(base,
		"time", kitlog.DefaultTimestampUTC,
		"app", AppName,
		"caller", kitlog.Valuer(caller),
	)
	l := &logger{base: base}
	if c, ok := w.(io.Closer); ok && c != nil && w != os.Stdout && w != os.Stderr {
		l.closer = c
	}
	l.SetLogLevel(logLevel)
	return l
}

// NoopLogger returns a Logger that discards everything
func NoopLogger() Logger {
	l := &logger{base: kitlog.NewNopLogger()}
	l.SetLogLevel(level.Info)
	return l
}

type logger struct {
	base           kitlog.Logger
	filtered       kitlog.Logger
	level          level.Level
	levelID        level.ID
	closer         io.Closer
	mtx            sync.RWMutex
	onceRanEntries sync.Map
}

func (l *logger) SetLogLevel(logLevel level.Level) {
	logLevel = level.Level(strings.ToLower(string(logLevel)))
	id := level.GetID(logLevel)
	unknown := id == 0
	if unknown {
		logLevel = level.Info
		id = level.InfoID
	}
	var opt kitlevel.Option
	switch id {
	case level.DebugID:
		opt = kitlevel.AllowDebug()
	case level.InfoID:
		opt = kitlevel.AllowInfo()
	case level.WarnID:
		opt = kitlevel.AllowWarn()
	default:
		opt = kitlevel.AllowError()
	}
	l.mtx.Lock()
	l.level = logLevel
	l.levelID = id
	l.filtered = kitlevel.NewFilter(l.base, opt)
	l.mtx.Unlock()
	if unknown {
		l.WarnOnce("loglevel.unknown", "unknown log level; using INFO", nil)
	}
}

func (l *logger) Level() level.Level {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	return l.level
}

func (l *logger) Log(logLevel level.Level, event string, detail Pairs) {
	kv := keyvals(event, detail)
	l.mtx.RLock()
	fl := l.filtered
	l.mtx.RUnlock()
	switch level.GetID(logLevel) {
	case level.DebugID:
		kitlevel.Debug(fl).Log(kv...)
	case level.InfoID:
		kitlevel.Info(fl).Log(kv...)
	case level.WarnID:
		kitlevel.Warn(fl).Log(kv...)
	case level.ErrorID:
		kitlevel.Error(fl).Log(kv...)
	case level.FatalID:
		// go-kit/log/level has no fatal level, so it bypasses the filter
		kitlog.WithPrefix(l.base, kitlevel.Key(), string(level.Fatal)).Log(kv...)
	}
}

func (l *logger) Debug(event string, detail Pairs) {
	l.Log(level.Debug, event, detail)
}

func (l *logger) Info(event string, detail Pairs) {
	l.Log(level.Info, event, detail)
}

func (l *logger) Warn(event string, detail Pairs) {
	l.Log(level.Warn, event, detail)
}

func (l *logger) Error(event string, detail Pairs) {
	l.Log(level.Error, event, detail)
}

func (l *logger) Fatal(code int, event string, detail Pairs) {
	l.Log(level.Fatal, event, detail)
	if code < 0 {
		// tests will send a -1 code to avoid exiting during the test
		return
	}
	if code == 0 {
		code = 1
	}
	os.Exit(code)
}

func (l *logger) LogOnce(logLevel level.Level, key, event string, detail Pairs) bool {
	lid := level.GetID(logLevel)
	l.mtx.RLock()
	minID := l.levelID
	l.mtx.RUnlock()
	if lid == 0 || lid < minID {
		return false
	}
	_, loaded := l.onceRanEntries.LoadOrStore(string(logLevel)+"."+key, true)
	if loaded {
		return false
	}
	l.Log(logLevel, event, detail)
	return true
}

func (l *logger) DebugOnce(key, event string, detail Pairs) bool {
	return l.LogOnce(level.Debug, key, event, detail)
}

func (l *logger) InfoOnce(key, event string, detail Pairs) bool {
	return l.LogOnce(level.Info, key, event, detail)
}

func (l *logger) WarnOnce(key, event string, detail Pairs) bool {
	return l.LogOnce(level.Warn, key, event, detail)
}

func (l *logger) ErrorOnce(key, event string, detail Pairs) bool {
	return l.LogOnce(level.Error, key, event, detail)
}

func (l *logger) HasLoggedOnce(logLevel level.Level, key string) bool {
	_, ok := l.onceRanEntries.Load(string(logLevel) + "." + key)
	return ok
}

func (l *logger) HasWarnedOnce(key string) bool {
	return l.HasLoggedOnce(level.Warn, key)
}

func (l *logger) Close() {
	if l.closer != nil {
		l.closer.Close()
	}
}

// keyvals flattens the event and its detail into go-kit keyvals, with the
// event first and the detail keys in sorted order
func keyvals(event string, detail Pairs) []any {
	kv := make([]any, 0, (len(detail)*2)+2)
	kv = append(kv, "event", strings.TrimSpace(event))
	keys := maps.Keys(detail)
	slices.Sort(keys)
	for _, k := range keys {
		kv = append(kv, k, detail[k])
	}
	return kv
}

// pkgCaller wraps a stack.Call to make the default string output include the
// package path.
type pkgCaller struct {
	c stack.Call
}

// String returns a path from the call stack that is relative to the root of the project
func (pc pkgCaller) String() string {
	s := fmt.Sprintf("%+v", pc.c)
	if i := strings.Index(s, "/pkg/"); i >= 0 {
		return s[i+1:]
	}
	if i := strings.Index(s, "/cmd/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

// caller returns the first frame outside of the logging packages and go-kit
func caller() any {
	for _, c := range stack.Trace().TrimRuntime() {
		s := fmt.Sprintf("%+v", c)
		if strings.Contains(s, "/observability/logging") ||
			strings.Contains(s, "go-kit/log") ||
			strings.Contains(s, "go-stack/stack") {
			continue
		}
		return pkgCaller{c}
	}
	return ""
}
