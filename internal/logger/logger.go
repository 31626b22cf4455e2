// Package logger configures slog for the API and worker and carries a
// request-scoped logger through context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

var defaultLogger *slog.Logger

// Init installs the process logger. format is "json" or "text"; component
// is attached to every record.
func Init(w io.Writer, level, format, component string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}

	defaultLogger = slog.New(h).With("component", component)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		if strings.EqualFold(level, "warning") {
			return slog.LevelWarn
		}
		return slog.LevelInfo
	}
	return l
}

// Zerolog builds the logger handed to the job-queue pool and its middlewares,
// at the same level as the slog logger.
func Zerolog(w io.Writer, level, component string) zerolog.Logger {
	var zl zerolog.Level
	switch lvl := parseLevel(level); {
	case lvl <= slog.LevelDebug:
		zl = zerolog.DebugLevel
	case lvl >= slog.LevelError:
		zl = zerolog.ErrorLevel
	case lvl >= slog.LevelWarn:
		zl = zerolog.WarnLevel
	default:
		zl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(zl).With().Timestamp().Str("component", component).Logger()
}

func Default() *slog.Logger {
	if defaultLogger == nil {
		return slog.Default()
	}
	return defaultLogger
}

func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return Default()
}

func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return WithLogger(ctx, FromContext(ctx).With("request_id", requestID))
}

// WithUserID only enriches the logger; the user id itself lives in the auth claims.
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithLogger(ctx, FromContext(ctx).With("user_id", userID))
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
