package transport

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/corvusdb/corvus-go/internal/auth"
	"github.com/corvusdb/corvus-go/internal/constants"
)

// Config holds configuration for TCP transport connections.
type Config struct {
	// DialTimeout bounds connection establishment, handshake included.
	// Default: 10 seconds
	DialTimeout time.Duration

	// ReadTimeout is the per-message read deadline. Negative disables it.
	// Default: 30 seconds
	ReadTimeout time.Duration

	// WriteTimeout is the per-message write deadline. Negative disables it.
	// Default: 30 seconds
	WriteTimeout time.Duration

	// Credential authenticates each new connection with SCRAM-SHA-256.
	// Optional - if nil, connections are not authenticated.
	Credential *auth.Credential

	// Logger receives structured transport logs.
	// Optional - if nil, logs are discarded.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:  constants.DefaultDialTimeout,
		ReadTimeout:  constants.DefaultReadTimeout,
		WriteTimeout: constants.DefaultWriteTimeout,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DialTimeout < 0 {
		return errors.New("transport: DialTimeout cannot be negative")
	}
	if c.Credential != nil && c.Credential.Username == "" {
		return errors.New("transport: Credential.Username cannot be empty")
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.DialTimeout == 0 {
		c.DialTimeout = defaults.DialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = defaults.ReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = defaults.WriteTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}
