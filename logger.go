// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postfx

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for postfx and the backends of every
// live pipeline. By default postfx produces no log output.
// Pass nil to restore the silent default.
//
// Log levels used by postfx:
//   - [slog.LevelDebug]: program compilation, cache hits and evictions, sweeps
//   - [slog.LevelInfo]: pipeline compile completion
//   - [slog.LevelWarn]: writes to disposed resources, release failures
//
// Example:
//
//	postfx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	settersMu.Lock()
	defer settersMu.Unlock()
	for s := range setters {
		s.SetLogger(l)
	}
}

// Logger returns the current logger. Safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by backends that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

var (
	settersMu sync.Mutex
	setters   = make(map[loggerSetter]int)
)

// attachLogger hands the current logger to b and keeps it updated until
// detachLogger is called the same number of times.
func attachLogger(b any) {
	ls, ok := b.(loggerSetter)
	if !ok {
		return
	}
	ls.SetLogger(Logger())
	settersMu.Lock()
	setters[ls]++
	settersMu.Unlock()
}

func detachLogger(b any) {
	ls, ok := b.(loggerSetter)
	if !ok {
		return
	}
	settersMu.Lock()
	defer settersMu.Unlock()
	if setters[ls] <= 1 {
		delete(setters, ls)
		return
	}
	setters[ls]--
}
