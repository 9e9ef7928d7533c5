// Package logging provides structured logging for the quantile commands.
//
// This package wraps the standard library's log/slog package to provide
// consistent logging across all components. It supports both text and JSON
// output formats, configurable log levels, and component-based loggers.
// Logs go to stderr; stdout is reserved for reports.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false) // Text format
//	logging.Init(slog.LevelDebug, true) // JSON format
//
//	// Get a component logger
//	log := logging.Component("aggregate")
//	log.Info("bucket completed", "series", key, "count", n)
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the global logger instance.
var Logger *slog.Logger

// Init initializes the global logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
func Init(level slog.Level, jsonFormat bool) {
	InitWriter(os.Stderr, level, jsonFormat)
}

// InitWriter is like Init but writes to w.
func InitWriter(w io.Writer, level slog.Level, jsonFormat bool) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	InitWithHandler(handler)
}

// InitWithHandler initializes the global logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

func logger() *slog.Logger {
	if Logger == nil {
		Init(slog.LevelInfo, false)
	}
	return Logger
}

// With returns a new logger with additional attributes.
func With(args ...any) *slog.Logger {
	return logger().With(args...)
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("ingest")
//	log.Info("started") // Output: time=... level=INFO component=ingest msg=started
func Component(name string) *slog.Logger {
	return logger().With("component", name)
}

// WithContext returns a logger carrying the input and series stored in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	l := logger()

	if input, ok := ctx.Value(contextKeyInput).(string); ok {
		l = l.With("input", input)
	}
	if series, ok := ctx.Value(contextKeySeries).(string); ok {
		l = l.With("series", series)
	}

	return l
}

type contextKey int

const (
	contextKeyInput contextKey = iota
	contextKeySeries
)

// ContextWithInput adds the name of the input being read to the context.
func ContextWithInput(ctx context.Context, input string) context.Context {
	return context.WithValue(ctx, contextKeyInput, input)
}

// ContextWithSeries adds a series key to the context.
func ContextWithSeries(ctx context.Context, series string) context.Context {
	return context.WithValue(ctx, contextKeySeries, series)
}

// =============================================================================
// Convenience Functions
// =============================================================================

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	logger().Info(msg, args...)
}

// Warn logs at warning level.
func Warn(msg string, args ...any) {
	logger().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	logger().Error(msg, args...)
}
