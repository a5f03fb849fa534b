// Package logx builds the slog.Logger shared by both binaries. Keeping
// construction in one place means the server and the client CLI agree
// on format and level handling.
package logx

import (
	"log/slog"
	"os"
	"strings"
)

// Config controls handler construction. Zero values fall back to a
// JSON handler at info level.
type Config struct {
	Service string // attached as a "service" attribute on every record
	Level   string // "debug", "info", "warn", "error"
	Format  string // "json" or "text"
}

// New returns a configured *slog.Logger and installs it as the default.
func New(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, opts)
	default:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With("service", cfg.Service)
	}
	slog.SetDefault(logger)
	return logger
}

func parseLevel(lvl string) slog.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
