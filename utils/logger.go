package utils

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to its slog value. Unknown names yield info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// InitLogger creates a leveled logger writing to w and installs it as the slog default.
// Records are rendered as JSON when asJSON is set, as key=value text otherwise.
func InitLogger(w io.Writer, level string, asJSON bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var logger *slog.Logger
	if asJSON {
		logger = slog.New(slog.NewJSONHandler(w, opts))
	} else {
		logger = slog.New(slog.NewTextHandler(w, opts))
	}
	slog.SetDefault(logger)

	return logger
}
