package driver

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/corvusdb/corvus-go/internal/constants"
)

// ServerConfig holds configuration for a per-node Server.
type ServerConfig struct {
	// HeartbeatInterval is the period between server probes. The first
	// probe runs immediately on construction.
	// Default: 5 seconds
	HeartbeatInterval time.Duration

	// ProbeTimeout bounds a single probe round trip.
	// Default: 10 seconds
	ProbeTimeout time.Duration

	// Pool configures both connection pools.
	Pool PoolConfig

	// Logger receives structured driver logs.
	// Optional - if nil, logs are discarded.
	Logger *slog.Logger

	// TracerProvider supplies the OpenTelemetry tracer for connection and
	// probe spans. Optional - if nil, the global provider is used.
	TracerProvider trace.TracerProvider
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HeartbeatInterval: constants.HeartbeatInterval,
		ProbeTimeout:      constants.ProbeTimeout,
		Pool:              DefaultPoolConfig(),
	}
}

// Validate checks the configuration for errors.
func (c *ServerConfig) Validate() error {
	if c.HeartbeatInterval < 0 {
		return errors.New("server: HeartbeatInterval cannot be negative")
	}
	if c.ProbeTimeout < 0 {
		return errors.New("server: ProbeTimeout cannot be negative")
	}
	return c.Pool.Validate()
}

// applyDefaults fills in zero values with defaults.
func (c *ServerConfig) applyDefaults() {
	defaults := DefaultServerConfig()

	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c.Pool.applyDefaults()
}
