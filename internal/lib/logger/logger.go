// Package logger builds the process logger.
package logger

import (
	"io"
	"log/slog"
	"os"
)

const (
	envLocal      = "local"
	envProduction = "production"
)

// New returns a text logger for local work and a JSON logger everywhere else.
// Debug level is enabled when debug is true.
func New(env string, debug bool) *slog.Logger {
	return NewWithWriter(os.Stdout, env, debug)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, env string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if env == envProduction {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
