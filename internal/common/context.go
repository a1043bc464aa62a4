package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID contextKey = "run_id"
	ContextKeyPage  contextKey = "page"
)

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithPage adds the page index being processed to the context
func WithPage(ctx context.Context, page int) context.Context {
	return context.WithValue(ctx, ContextKeyPage, page)
}

// PageFromContext extracts the page index from context; 0 when unset.
func PageFromContext(ctx context.Context) int {
	if page, ok := ctx.Value(ContextKeyPage).(int); ok {
		return page
	}
	return 0
}

// LoggerFrom decorates logger with the run and page carried by ctx.
func LoggerFrom(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if id := RunIDFromContext(ctx); id != "" {
		logger = logger.With("run_id", id)
	}
	if page := PageFromContext(ctx); page > 0 {
		logger = logger.With("page", page)
	}
	return logger
}
