// Package logger wires log/slog with the request-scoped attributes the
// service layer carries through context.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	containerKey ctxKey = "containerID"
)

// Setup installs a JSON slog handler at the given level as the process
// default.
func Setup(level string) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// GenerateRequestID creates a new UUID for tracing requests.
func GenerateRequestID() string {
	return uuid.NewString()
}

// WithRequestID returns a new context containing the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithContainerID returns a new context tagged with the container being
// operated on.
func WithContainerID(ctx context.Context, containerID string) context.Context {
	return context.WithValue(ctx, containerKey, containerID)
}

// FromContext returns a logger carrying the request_id and container_id
// attributes when present.
func FromContext(ctx context.Context) *slog.Logger {
	log := slog.Default()
	if id, ok := stringValue(ctx, requestIDKey); ok {
		log = log.With("request_id", id)
	}
	if id, ok := stringValue(ctx, containerKey); ok {
		log = log.With("container_id", id)
	}
	return log
}

func stringValue(ctx context.Context, key ctxKey) (string, bool) {
	v := ctx.Value(key)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
