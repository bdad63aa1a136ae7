package logging

import (
	"context"
	"io"
	"os"
	"strings"
)

// Field is a structured logging attribute.
type Field struct {
	Key   string
	Value any
}

// Convenience helpers for common field types.
func String(key, value string) Field          { return Field{Key: key, Value: value} }
func Int(key string, value int) Field         { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Field{Key: key, Value: value} }
func Any(key string, value any) Field         { return Field{Key: key, Value: value} }

// Error is a shorthand for String("error", err.Error()). A nil error
// yields an empty value.
func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is a small structured logging interface. It is backed by slog
// or logrus depending on Config.Backend.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	With(fields ...Field) Logger
}

const (
	BackendSlog   = "slog"
	BackendLogrus = "logrus"
)

// Config controls basic logger behaviour.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // json or text
	Backend   string    // slog or logrus
	AddSource bool      // include source locations (slog only)
	Writer    io.Writer // defaults to os.Stderr
}

// New constructs a Logger for the provided config. Unknown backends fall
// back to slog.
func New(cfg Config) Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	json := strings.EqualFold(cfg.Format, "json")

	switch strings.ToLower(cfg.Backend) {
	case BackendLogrus:
		return newLogrus(w, cfg.Level, json)
	default:
		return newSlog(w, cfg.Level, json, cfg.AddSource)
	}
}

// Noop returns a logger that drops all logs.
func Noop() Logger { return noopLogger{} }

type noopLogger struct{}

func (noopLogger) With(fields ...Field) Logger             { return noopLogger{} }
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
