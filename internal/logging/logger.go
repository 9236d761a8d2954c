// Package logging defines the structured logger used across the service.
package logging

import (
	"context"
	"fmt"
	"io"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "image uploaded", "url", url, "folder", folder)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}

const badKey = "!BADKEY"

// LogrusLogger adapts a logrus entry to Logger.
type LogrusLogger struct {
	entry *logrus.Entry
}

// New builds a logrus-backed Logger. level is any logrus level name ("debug",
// "info", ...); unknown names fall back to info. format "json" selects the
// JSON formatter, anything else the text formatter with full timestamps.
func New(level, format string, out io.Writer) *LogrusLogger {
	l := logrus.New()
	l.Out = out

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.Level = lvl

	if strings.EqualFold(format, "json") {
		l.Formatter = &logrus.JSONFormatter{}
	} else {
		l.Formatter = &logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		}
	}

	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

// NewFromLogrus wraps an existing logrus logger.
func NewFromLogrus(l *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l)}
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.withContext(ctx, args).Debug(msg)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.withContext(ctx, args).Info(msg)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.withContext(ctx, args).Warn(msg)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.withContext(ctx, args).Error(msg)
}

func (l *LogrusLogger) With(args ...any) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(fields(args))}
}

func (l *LogrusLogger) withContext(ctx context.Context, args []any) *logrus.Entry {
	f := fields(args)
	if ctx != nil {
		if id := chiMiddleware.GetReqID(ctx); id != "" {
			f["request_id"] = id
		}
	}
	return l.entry.WithContext(ctx).WithFields(f)
}

func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			f[badKey] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok {
			key = fmt.Sprint(args[i])
		}
		f[key] = args[i+1]
	}
	return f
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return New("panic", "text", io.Discard)
}
