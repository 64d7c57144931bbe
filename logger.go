package speclib

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with speclib-specific context.
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

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
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

// WithFormat adds a format field to the logger.
func (l *Logger) WithFormat(format string) *Logger {
	return &Logger{
		Logger: l.Logger.With("format", format),
	}
}

// WithPath adds a path field to the logger.
func (l *Logger) WithPath(path string) *Logger {
	return &Logger{
		Logger: l.Logger.With("path", path),
	}
}

// LogOpen logs a library open operation.
func (l *Logger) LogOpen(ctx context.Context, path, format string, count uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "open failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "library opened",
			"path", path,
			"format", format,
			"spectra", count,
		)
	}
}

// LogLookup logs a spectrum lookup operation.
func (l *Logger) LogLookup(ctx context.Context, query string, err error) {
	if err != nil {
		l.WarnContext(ctx, "lookup failed",
			"query", query,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "lookup completed",
			"query", query,
		)
	}
}

// LogConvert logs a library conversion operation.
func (l *Logger) LogConvert(ctx context.Context, from, to string, spectra uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"from", from,
			"to", to,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "conversion completed",
			"from", from,
			"to", to,
			"spectra", spectra,
		)
	}
}

// LogIndexBuild logs an offset index build.
func (l *Logger) LogIndexBuild(ctx context.Context, path string, records uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index build failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index built",
			"path", path,
			"records", records,
		)
	}
}
