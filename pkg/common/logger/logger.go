package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

// Package logger provides leveled printf-style logging for the tool.
// It is backed by slog with a tint handler so dev output is readable.

var (
	mu  sync.RWMutex
	std = slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelInfo}))
)

// Initialize sets up the global logger based on input string
// (e.g., "debug", "info", "warn", "error").
func Initialize(level string) {
	var lvl slog.Level
	switch level {
	case "debug", "DEBUG":
		lvl = slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		lvl = slog.LevelWarn
	case "error", "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	h := tint.NewHandler(os.Stdout, &tint.Options{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	mu.Lock()
	std = slog.New(h)
	mu.Unlock()
}

func logf(lvl slog.Level, format string, v ...any) {
	mu.RLock()
	l := std
	mu.RUnlock()
	l.Log(context.Background(), lvl, fmt.Sprintf(format, v...))
}

// Package-level helpers
func Debug(format string, v ...any) { logf(slog.LevelDebug, format, v...) }
func Info(format string, v ...any)  { logf(slog.LevelInfo, format, v...) }
func Warn(format string, v ...any)  { logf(slog.LevelWarn, format, v...) }
func Error(format string, v ...any) { logf(slog.LevelError, format, v...) }
