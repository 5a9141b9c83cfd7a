package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the global slog logger: JSON to stdout, fanned out to any
// extra handlers (the PGHandler in production).
func Setup(level string, extra ...slog.Handler) *slog.Logger {
	stdout := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})

	var handler slog.Handler = stdout
	if len(extra) > 0 {
		handler = NewMultiHandler(append([]slog.Handler{stdout}, extra...)...)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(level string) slog.Level {
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
