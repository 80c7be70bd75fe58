package execution

import (
	"io"
	"log/slog"
)

// Logger adapts a slog.Logger to ports.Logger.
type Logger struct {
	l *slog.Logger
}

// NewLogger wraps l. A nil l discards all output.
func NewLogger(l *slog.Logger) *Logger {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Logger{l: l}
}

// Error logs msg at error level with the stack as an attribute.
func (l *Logger) Error(msg string, stack string) {
	l.l.Error(msg, "stack", stack)
}

// Info logs at info level.
func (l *Logger) Info(msg string, args ...any) {
	l.l.Info(msg, args...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, args ...any) {
	l.l.Debug(msg, args...)
}
