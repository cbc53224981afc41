package cli

import (
	"io"
	"log/slog"

	"github.com/prostore-ios/installer/internal/logger"
)

// NewLogger creates the command logger. Logs go to w (stderr in the app) to
// keep stdout clean for command output. Unknown levels fall back to info and
// unknown formats to json.
func NewLogger(w io.Writer, levelStr, format string) *slog.Logger {
	level := ParseLogLevelOrDefault(levelStr)
	l, err := logger.New(w, level.String(), format)
	if err != nil {
		l, _ = logger.New(w, level.String(), "json")
	}
	return l
}

// ParseLogLevelOrDefault parses a log level string or returns a default level.
func ParseLogLevelOrDefault(levelStr string) slog.Level {
	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
