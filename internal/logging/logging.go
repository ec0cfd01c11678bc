// Package logging provides the leveled key/value logger used across the
// pipeline. A Logger is built once and passed to the components that log.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// Logger wraps a pterm logger with key/value helpers.
type Logger struct {
	pt *pterm.Logger
}

// New creates a logger writing to w at the named level ("trace", "debug",
// "info", "warn", "error"). format "json" selects JSON lines.
func New(w io.Writer, level, format string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	pl := pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithWriter(w)
	if strings.EqualFold(format, "json") {
		pl = pl.WithFormatter(pterm.LogFormatterJSON)
	}
	return &Logger{pt: pl}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{pt: pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)}
}

// ParseLevel maps a level name to a pterm level, defaulting to info.
func ParseLevel(s string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug", "dbg":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error", "err":
		return pterm.LogLevelError
	case "off", "disabled", "none":
		return pterm.LogLevelDisabled
	default:
		return pterm.LogLevelInfo
	}
}

func (l *Logger) Debug(msg string, kv ...any) { l.pt.Debug(msg, l.pt.Args(kv...)) }
func (l *Logger) Info(msg string, kv ...any)  { l.pt.Info(msg, l.pt.Args(kv...)) }
func (l *Logger) Warn(msg string, kv ...any)  { l.pt.Warn(msg, l.pt.Args(kv...)) }

// Err logs err at error level. A nil error is ignored.
func (l *Logger) Err(err error, msg string, kv ...any) {
	if err == nil {
		return
	}
	kv = append([]any{"error", err.Error()}, kv...)
	l.pt.Error(msg, l.pt.Args(kv...))
}
