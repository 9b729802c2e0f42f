package varglyph

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for varglyph and all its sub-packages.
// By default no log output is produced. SetLogger is safe for concurrent
// use; pass nil to restore the default silent behavior.
//
// Log levels used:
//   - [slog.LevelDebug]: cache traces (hits, invalidations)
//   - [slog.LevelWarn]: contained failures (nearest-source fallback taken,
//     unresolved component, component cycle detected)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the currently configured logger. Sub-packages log through
// this accessor so that SetLogger takes effect everywhere at once.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
