package logger

import (
	"log/slog"
	"os"

	"github.com/jwebster45206/nexus-gamemaster/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// WithRequest tags a logger with the adventure request being processed.
func WithRequest(logger *slog.Logger, requestID string, tokenID string) *slog.Logger {
	return logger.With("request_id", requestID, "token_id", tokenID)
}
