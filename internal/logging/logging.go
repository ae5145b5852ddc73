// Package logging builds the slog logger used by the vaultmerge commands.
package logging

import (
	"io"
	"log/slog"

	"github.com/illarion/vaultmerge/internal/config"
)

// Level maps a configured level name to a slog level. Unknown names map to warn.
func Level(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

// New returns a logger writing to w in the configured format and level.
// Secrets are never passed to the logger; only names, titles and counts are.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: Level(cfg.LogLevel)}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}
