package logging

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type logrusLogger struct {
	e *logrus.Entry
}

func newLogrus(w io.Writer, level string, json bool) Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(parseLogrusLevel(level))
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return &logrusLogger{e: logrus.NewEntry(l)}
}

func (l *logrusLogger) With(fields ...Field) Logger {
	return &logrusLogger{e: l.e.WithFields(toLogrusFields(fields))}
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.entry(ctx, fields).Debug(msg)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.entry(ctx, fields).Info(msg)
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.entry(ctx, fields).Warn(msg)
}

func (l *logrusLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.entry(ctx, fields).Error(msg)
}

func (l *logrusLogger) entry(ctx context.Context, fields []Field) *logrus.Entry {
	e := l.e
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	if len(fields) == 0 {
		return e
	}
	return e.WithFields(toLogrusFields(fields))
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}

func parseLogrusLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
