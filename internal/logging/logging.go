// Package logging provides structured logging for the corvus-go driver,
// built on log/slog with environment-driven configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds the logger configuration.
type Config struct {
	Level     slog.Level
	Format    string    // "json" or "text"
	AddSource bool      // Whether to add source code information
	Writer    io.Writer // Custom writer for output
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Format: "json",
		Writer: os.Stderr,
	}
}

// LoadConfig loads the logger configuration from CORVUS_LOG_* environment
// variables, falling back to defaults for anything unset.
func LoadConfig() Config {
	config := DefaultConfig()

	if levelStr := os.Getenv("CORVUS_LOG_LEVEL"); levelStr != "" {
		config.Level = ParseLevel(levelStr, config.Level)
	}

	if format := os.Getenv("CORVUS_LOG_FORMAT"); format == "text" || format == "json" {
		config.Format = format
	}

	if addSourceStr := os.Getenv("CORVUS_LOG_ADD_SOURCE"); addSourceStr != "" {
		if addSource, err := strconv.ParseBool(addSourceStr); err == nil {
			config.AddSource = addSource
		}
	}

	return config
}

// ParseLevel maps a level name (or numeric slog level) to a slog.Level,
// returning fallback when the string is unrecognized. Matching is
// case-insensitive.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	if levelInt, err := strconv.Atoi(s); err == nil {
		return slog.Level(levelInt)
	}
	return fallback
}

// New creates a logger with the given configuration.
func New(config Config) *slog.Logger {
	writer := config.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     config.Level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	switch config.Format {
	case "text":
		handler = slog.NewTextHandler(writer, opts)
	default: // json
		handler = slog.NewJSONHandler(writer, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops every record. Components take it as
// the default so callers that never configure logging pay nothing.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
