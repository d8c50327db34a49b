package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Constants for context and attribute keys
const (
	CorrelationIDKey = "correlation_id"
	ModuleKey        = "module"
)

// programLevel allows dynamic adjustment of logging level
var programLevel = new(slog.LevelVar)

// Logger wraps slog.Logger with additional functionality
type Logger struct {
	*slog.Logger
}

// sensitiveKeys never reach the log output
var sensitiveKeys = map[string]struct{}{
	"password":      {},
	"secret":        {},
	"token":         {},
	"authorization": {},
	"client_secret": {},
	"apiKey":        {},
}

// filterAttr filters out sensitive attributes
func filterAttr(groups []string, a slog.Attr) slog.Attr {
	if _, ok := sensitiveKeys[a.Key]; ok {
		return slog.Attr{}
	}
	return a
}

// NewLogger creates a new logger writing to stdout with the specified level and format
func NewLogger(level, format string) (*Logger, error) {
	logger, err := NewLoggerWithWriter(os.Stdout, level, format)
	if err != nil {
		return nil, err
	}

	// Set as default logger
	slog.SetDefault(logger.Logger)

	return logger, nil
}

// NewLoggerWithWriter creates a logger writing to w.
// Format "json" produces structured JSON lines, anything else uses tint.
func NewLoggerWithWriter(w io.Writer, level, format string) (*Logger, error) {
	if err := SetLogLevel(level); err != nil {
		return nil, err
	}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       programLevel,
			ReplaceAttr: filterAttr,
		})
	case "", "text", "console":
		handler = tint.NewHandler(w, &tint.Options{
			Level:       programLevel,
			TimeFormat:  time.RFC3339,
			ReplaceAttr: filterAttr,
			NoColor:     w != os.Stdout,
		})
	default:
		return nil, fmt.Errorf("invalid log format: '%s'", format)
	}

	return &Logger{Logger: slog.New(handler)}, nil
}

// NewDiscardLogger returns a logger that drops every record
func NewDiscardLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// SetLogLevel sets the logging level
func SetLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug":
		programLevel.Set(slog.LevelDebug)
	case "info":
		programLevel.Set(slog.LevelInfo)
	case "warn":
		programLevel.Set(slog.LevelWarn)
	case "error":
		programLevel.Set(slog.LevelError)
	default:
		return fmt.Errorf("invalid log level: '%s'", level)
	}
	return nil
}

// With creates a new logger with the provided attributes
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithModule creates a new logger with the module attribute
func (l *Logger) WithModule(module string) *Logger {
	return l.With(ModuleKey, module)
}

// WithCorrelationID adds the request correlation id to the logger
func (l *Logger) WithCorrelationID(correlationID string) *Logger {
	return l.With(CorrelationIDKey, correlationID)
}

// Context key type for logging context
type contextKey string

const ctxLoggerKey contextKey = "logger"

// ContextWithLogger adds a logger to a context
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey, logger)
}

// LoggerFromContext extracts a logger from a context
func LoggerFromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(ctxLoggerKey).(*Logger); ok {
		return logger
	}
	return nil
}

// FromContextOr returns the request logger when present, fallback otherwise
func FromContextOr(ctx context.Context, fallback *Logger) *Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return fallback
}

// Err returns a formatted error attribute for logging
func Err(err error) slog.Attr {
	return tint.Err(err)
}
