package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/goliatone/go-pugview/pkg/config"
)

// logFlags override the log section of the configuration file.
type logFlags struct {
	Level  string `help:"Set log level (debug, info, warn, error)."`
	Format string `help:"Set log format (text, json)."`
}

func (f logFlags) logger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level := firstNonEmpty(f.Level, cfg.Level, "info")
	format := firstNonEmpty(f.Format, cfg.Format, "text")

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: expected text or json", format)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
