package app

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the app-wide logger type (slog).
type Logger = *slog.Logger

// NewLogger creates the process logger and installs it as slog's default.
// format is "json" (default) or "pretty"; color only affects the pretty format.
func NewLogger(level, format string, color bool) *slog.Logger {
	log := slog.New(newHandler(os.Stdout, level, format, color))
	slog.SetDefault(log)
	return log
}

func newHandler(w io.Writer, level, format string, color bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(level),
		AddSource: true,
	}
	if strings.EqualFold(strings.TrimSpace(format), "pretty") {
		return newPrettyHandler(w, opts, color)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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
