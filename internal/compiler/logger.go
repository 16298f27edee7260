package compiler

import (
	"fmt"
	"io"
	"log/slog"
)

// Logger provides verbose output for compilation decisions.
type Logger struct {
	enabled bool
	log     *slog.Logger
}

// NewLogger creates a new logger instance writing through slog.Default.
func NewLogger(enabled bool) *Logger {
	return &Logger{
		enabled: enabled,
		log:     slog.Default(),
	}
}

// SetOutput sends log records to w as text.
func (l *Logger) SetOutput(w io.Writer) {
	l.log = slog.New(slog.NewTextHandler(w, nil))
}

// SetLogger replaces the underlying slog logger. A nil logger is ignored.
func (l *Logger) SetLogger(log *slog.Logger) {
	if log != nil {
		l.log = log
	}
}

// Log emits a formatted message if verbose mode is enabled.
func (l *Logger) Log(format string, args ...any) {
	if l.enabled {
		l.log.Info(fmt.Sprintf(format, args...), "component", "regmark")
	}
}

// Section emits a section header if verbose mode is enabled.
func (l *Logger) Section(name string) {
	if l.enabled {
		l.log.Info("=== "+name+" ===", "component", "regmark")
	}
}

// Enabled returns whether the logger is enabled.
func (l *Logger) Enabled() bool {
	return l.enabled
}
