// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// RunIDKey is the context key for the per-invocation import run ID.
	RunIDKey ContextKey = "run_id"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (text format, Info level) so
	// diagnostics are readable on a terminal by default; the CLI may
	// re-init with JSON once flags are parsed.
	InitLogger(LevelInfo, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatText outputs logs as slog key=value text lines; Diagnostic puts
	// the LEVEL(CATEGORY)[line,col] rendering in the msg field.
	FormatText Format = iota
	// FormatJSON outputs logs as structured JSON.
	FormatJSON
)

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithRunID attaches the import run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// RunID retrieves the import run ID from the context.
func RunID(ctx context.Context) string {
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerFromContext returns a logger with the run ID attached, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if id := RunID(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	return logger
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { defaultLogger.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { defaultLogger.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { defaultLogger.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { defaultLogger.Error(msg, args...) }

// Category identifies a debug/diagnostic bitmask category (see the -d flag).
type Category string

const (
	CategoryWrite     Category = "WRITE"
	CategoryVerse     Category = "VERSE"
	CategoryQuote     Category = "QUOTE"
	CategoryTitle     Category = "TITLE"
	CategoryInterV    Category = "INTERV"
	CategoryXform     Category = "XFORM"
	CategoryV11N      Category = "V11N"
	CategoryRef       Category = "REF"
	CategoryStack     Category = "STACK"
	CategoryOther     Category = "OTHER"
	CategoryParse     Category = "PARSE"
	CategoryUsage     Category = "USAGE"
	CategoryAcquire   Category = "ACQUIRE"
	CategoryStructure Category = "STRUCT"
)

// Diagnostic renders and logs one diagnostic in the
// LEVEL(CATEGORY)[line,col](osisID): message shape required by the spec's
// error-handling design: [line,col] is omitted when both are zero, and
// (osisID) is omitted when empty.
func Diagnostic(ctx context.Context, level Level, category Category, line, col int, osisID, message string) {
	logger := LoggerFromContext(ctx)

	var b []byte
	b = append(b, []byte(levelName(level))...)
	b = append(b, '(')
	b = append(b, []byte(category)...)
	b = append(b, ')')
	if line != 0 || col != 0 {
		b = append(b, []byte(fmt.Sprintf("[%d,%d]", line, col))...)
	}
	if osisID != "" {
		b = append(b, []byte(fmt.Sprintf("(%s)", osisID))...)
	}
	b = append(b, ':', ' ')
	b = append(b, []byte(message)...)
	text := string(b)

	args := []any{"category", string(category), "line", line, "col", col, "osis_id", osisID}
	switch level {
	case LevelDebug:
		logger.Debug(text, args...)
	case LevelWarn:
		logger.Warn(text, args...)
	case LevelError:
		logger.Error(text, args...)
	default:
		logger.Info(text, args...)
	}
}

func levelName(level Level) string {
	switch level {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARNING"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}
