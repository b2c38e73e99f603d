// Package logger provides structured logging for the tracer, built on
// log/slog. Instead of a general-purpose wrapper it exposes the scopes
// the tracer actually logs at: a component, a single request attempt,
// and a completed timing stage.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Logger is a slog.Logger scoped with tracer attributes
type Logger struct {
	*slog.Logger
}

// New creates a Logger emitting text records at the named level
// (debug, info, warn, error). Unknown levels fall back to info;
// config.Validate rejects them before they get here.
func New(level string, w io.Writer) *Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})
	return &Logger{Logger: slog.New(handler)}
}

// NewDefault creates a logger with default settings (info level, stderr)
func NewDefault() *Logger {
	return New("info", os.Stderr)
}

func (l *Logger) withAttrs(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Component scopes the logger to one tracer component (resolver,
// connector, https, client, httpmetrics)
func (l *Logger) Component(name string) *Logger {
	return l.withAttrs("component", name)
}

// Test scopes the logger to a named test definition
func (l *Logger) Test(name string) *Logger {
	return l.withAttrs("test", name)
}

// Request scopes the logger to one request attempt. Attempt numbering
// starts at 1.
func (l *Logger) Request(method, url string, attempt int) *Logger {
	return l.withAttrs("method", method, "url", url, "attempt", attempt)
}

// Stage records a completed life-cycle stage and its wall time at debug
// level. The stage is any displayable metric key.
func (l *Logger) Stage(stage fmt.Stringer, elapsed time.Duration) {
	l.Debug("stage complete", "stage", stage.String(), "elapsed", elapsed)
}
