package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. JSON output logs at Info for
// ingestion pipelines; the pretty text handler keeps Debug and source
// locations for local work.
func NewLogger(cfg *Config) *slog.Logger {
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true}))
}
