package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/BearBump/BagTrace/config"
)

// New builds a slog logger; format is "json" (default) or "text".
func New(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "console":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", cfg.Format)
	}
}

// Setup installs the logger as slog default and returns it.
func Setup(w io.Writer, cfg config.LogConfig) *slog.Logger {
	logger, err := New(w, cfg)
	if err != nil {
		logger = slog.New(slog.NewJSONHandler(w, nil))
		logger.Warn("fallback to json logger", "error", err.Error())
	}
	slog.SetDefault(logger)
	return logger
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
