package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyUser      ctxKey = "user"
)

// basic global logger, JSON to stdout.
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// Init replaces the global logger. level is one of DEBUG, INFO, WARN, ERROR.
func Init(w io.Writer, level string) *slog.Logger {
	logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
	return logger
}

func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Logger() *slog.Logger {
	return logger
}

// Discard is handy for tests and for the terminal client, where stdout belongs to the UI.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return logger.With(kv...)
}

// WithRequestID stores a request_id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// WithUser stores the authenticated user's external id in the context.
func WithUser(ctx context.Context, externalUserID string) context.Context {
	return context.WithValue(ctx, ctxKeyUser, externalUserID)
}

// LoggerFromContext adds request_id and user if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	var kv []any
	if reqID, _ := ctx.Value(ctxKeyRequestID).(string); reqID != "" {
		kv = append(kv, "request_id", reqID)
	}
	if user, _ := ctx.Value(ctxKeyUser).(string); user != "" {
		kv = append(kv, "user", user)
	}
	if len(kv) == 0 {
		return logger
	}
	return WithFields(kv...)
}
