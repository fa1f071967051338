package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger represents application logger.
type Logger struct {
	*slog.Logger
}

// New creates new Logger instance with the specified level writing text
// records to stdout.
func New(level int) *Logger {
	return NewWithOptions(os.Stdout, level, false)
}

// NewWithOptions creates a Logger writing to w. pretty switches to a
// colorized handler meant for terminals.
func NewWithOptions(w io.Writer, level int, pretty bool) *Logger {
	var handler slog.Handler
	if pretty {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      slog.Level(level),
			TimeFormat: time.RFC3339,
		})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.Level(level)})
	}

	return &Logger{Logger: slog.New(handler)}
}

// Fatal is equivalent to Error followed by os.Exit(1).
func (l *Logger) Fatal(msg string, args ...any) {
	l.Logger.Error(msg, args...)
	os.Exit(1)
}
