package log

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mmcdole/rebootv/internal/config"
)

// Off disables file logging when used as the level
const Off = "OFF"

// Setup opens the configured log file and returns a JSON logger writing
// to it, plus a function that closes the file. An empty file or the Off
// level yields a discarding logger.
func Setup(cfg *config.LoggingConfig) (*slog.Logger, func() error, error) {
	if cfg.File == "" || strings.EqualFold(cfg.Level, Off) {
		return Null(), func() error { return nil }, nil
	}

	logPath, err := expandHome(cfg.File)
	if err != nil {
		return nil, nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: ParseLevel(cfg.Level),
	})
	logger := slog.New(handler).With("pid", os.Getpid())
	return logger, logFile.Close, nil
}

// Component scopes a logger to one part of the app (store, backend, ...)
func Component(logger *slog.Logger, name string) *slog.Logger {
	return logger.With("component", name)
}

// ParseLevel converts a level name such as "debug", "WARNING" or
// "info+2" to a slog.Level, defaulting to INFO
func ParseLevel(level string) slog.Level {
	if strings.EqualFold(level, "WARNING") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Null returns a logger that discards all output
func Null() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}
