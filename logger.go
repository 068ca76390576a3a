package tensormap

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with tensormap-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithBlockCount adds a block count field to the logger.
func (l *Logger) WithBlockCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("blocks", count),
	}
}

// WithArchive adds an archive name field to the logger.
func (l *Logger) WithArchive(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("archive", name),
	}
}

// WithSize adds a byte size field to the logger.
func (l *Logger) WithSize(size int) *Logger {
	return &Logger{
		Logger: l.Logger.With("bytes", size),
	}
}
