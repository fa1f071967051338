// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	"github.com/dtroode/pgpmail-server/internal/logger"
)

func MakeNoopLogger() *logger.Logger {
	return &logger.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))}
}

// LogBuffer collects log output so tests can assert what was (not) logged.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// MakeCaptureLogger returns a debug level logger writing into the returned buffer.
func MakeCaptureLogger() (*logger.Logger, *LogBuffer) {
	buf := &LogBuffer{}
	l := &logger.Logger{Logger: slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}
	return l, buf
}
