package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var defaultLogger *slog.Logger

// ParseLevel maps a level name to a slog level; ok is false for unknown names
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// New builds a logger for env writing to w. Production logs JSON at info,
// everything else logs text at debug with source locations. A valid level
// name overrides the default level.
func New(w io.Writer, env, level string) *slog.Logger {
	production := env == "production"

	opts := &slog.HandlerOptions{Level: slog.LevelDebug, AddSource: !production}
	if production {
		opts.Level = slog.LevelInfo
	}
	if l, ok := ParseLevel(level); ok {
		opts.Level = l
	}

	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Initialize builds the process logger on stdout and installs it as the slog default
func Initialize(env, level string) *slog.Logger {
	defaultLogger = New(os.Stdout, env, level)
	slog.SetDefault(defaultLogger)
	return defaultLogger
}

// Get returns the process logger, initializing a development one if needed
func Get() *slog.Logger {
	if defaultLogger == nil {
		return Initialize("development", "")
	}
	return defaultLogger
}

// NewServiceLogger tags the process logger with a service name
func NewServiceLogger(serviceName string) *slog.Logger {
	return Get().With(slog.String("service", serviceName))
}

// Discard returns a logger that drops everything; used by tests
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}
