package sky

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the package logger. The package is silent by default;
// nil restores that.
//
// Levels:
//   - Debug: per frame update decisions, resource creation
//   - Info: settings swaps and resizes
//   - Warn: capability shortfalls (too few mips, no compute support)
//   - Error: failed resource creation
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// scopedLogger is embedded by types that can be given their own logger.
// Without one they log to the package logger.
type scopedLogger struct {
	l *slog.Logger
}

func (s scopedLogger) logger() *slog.Logger {
	if s.l != nil {
		return s.l
	}
	return Logger()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(target any, l *slog.Logger) {
	if s, ok := target.(loggerSetter); ok {
		s.SetLogger(l)
	}
}
