// Package logging provides structured logging for the release calendar tool.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Config holds logging configuration.
type Config struct {
	Format string `yaml:"format"` // "json" or "text"
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
}

// DefaultConfig returns sensible logging defaults.
func DefaultConfig() Config {
	return Config{
		Format: "text",
		Level:  "info",
	}
}

var logger *slog.Logger

// Setup initializes the global logger with the given configuration.
func Setup(cfg Config) *slog.Logger {
	return SetupWriter(os.Stderr, cfg)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, cfg Config) *slog.Logger {
	level := ParseLevel(cfg.Level)

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the configured logger, or the default if not set up.
func Get() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// RetryLogger adapts slog to the leveled logger interface of go-retryablehttp.
// Retry chatter is demoted one level so a normal run only shows give-ups.
type RetryLogger struct {
	*slog.Logger
}

// NewRetryLogger wraps l, or the global logger when l is nil.
func NewRetryLogger(l *slog.Logger) *RetryLogger {
	if l == nil {
		l = Get()
	}
	return &RetryLogger{l.With("component", "http")}
}

func (r *RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	r.Logger.Warn(msg, keysAndValues...)
}

func (r *RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	r.Logger.Debug(msg, keysAndValues...)
}

func (r *RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	r.Logger.Debug(msg, keysAndValues...)
}

func (r *RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	r.Logger.Warn(msg, keysAndValues...)
}
