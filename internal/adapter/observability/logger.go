// Package observability wires structured logging and metrics for the
// gateway, scheduler, and orchestrator.
package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. format is "json" or
// "text"; level is one of debug/info/warn/error (case-insensitive,
// defaults to info on an unrecognized value).
func NewLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithReview returns a logger scoped to a single review, so every log
// line emitted while processing it carries the same correlation fields.
func WithReview(logger *slog.Logger, reviewID string, repositoryID int64, prNumber int) *slog.Logger {
	return logger.With(
		slog.String("review_id", reviewID),
		slog.Int64("repository_id", repositoryID),
		slog.Int("pr_number", prNumber),
	)
}
