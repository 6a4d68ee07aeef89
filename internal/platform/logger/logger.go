package logger

import (
	"log/slog"
	"os"
)

// New returns the structured logger used across the service. Level defaults
// to info; set FISCO_LOG_LEVEL=debug for verbose pipeline logging.
func New() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("FISCO_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
