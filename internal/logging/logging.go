// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging is a small structured-logging façade over log/slog,
// keyed by component name.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	handler slog.Handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
)

// SetHandler replaces the process-wide slog handler used by every Logger.
func SetHandler(h slog.Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

// Logger logs for one named component, with an optional attached error.
type Logger struct {
	inner *slog.Logger
	err   error
}

// WithComponent returns a Logger tagged with the given component name.
func WithComponent(name string) *Logger {
	mu.RLock()
	h := handler
	mu.RUnlock()
	return &Logger{inner: slog.New(h).With("component", name)}
}

// WithError attaches an error to be logged alongside the next message.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{inner: l.inner, err: err}
}

// With returns a Logger with additional key/value attributes attached.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...), err: l.err}
}

func (l *Logger) log(level slog.Level, msg string, kv ...any) {
	if l.err != nil {
		kv = append(kv, "error", l.err)
	}
	l.inner.Log(context.Background(), level, msg, kv...)
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, kv ...any) { l.log(slog.LevelDebug, msg, kv...) }

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...any) { l.log(slog.LevelInfo, msg, kv...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...any) { l.log(slog.LevelWarn, msg, kv...) }

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...any) { l.log(slog.LevelError, msg, kv...) }
