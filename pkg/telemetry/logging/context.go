package logging

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	predicateKey contextKey = "predicate"
)

// WithLogger stores logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
// If a predicate name was attached with WithPredicate it is added as an attribute.
func FromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.Default()
	}
	if name := GetPredicate(ctx); name != "" {
		logger = logger.With("predicate", name)
	}
	return logger
}

// WithPredicate adds the name of the predicate being processed to the context.
func WithPredicate(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, predicateKey, name)
}

// GetPredicate retrieves the predicate name from the context.
func GetPredicate(ctx context.Context) string {
	if name, ok := ctx.Value(predicateKey).(string); ok {
		return name
	}
	return ""
}
