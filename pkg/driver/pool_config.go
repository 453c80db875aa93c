package driver

import (
	"errors"
	"time"

	"github.com/corvusdb/corvus-go/internal/constants"
)

// PoolConfig holds configuration for a connection pool.
type PoolConfig struct {
	// MaxConns is the maximum number of connections allowed.
	// Default: 100
	MaxConns int

	// IdleTimeout discards idle connections older than this on lease.
	// 0 disables the idle check.
	// Default: 5 minutes
	IdleTimeout time.Duration

	// MaxLifetime is the maximum lifetime of a connection. Connections
	// older than this are discarded on lease. 0 disables the check.
	// Default: 30 minutes
	MaxLifetime time.Duration

	// WaitTimeout is how long Get waits for a connection when the pool is
	// exhausted. Negative means return immediately with ErrPoolExhausted.
	// Default: 30 seconds
	WaitTimeout time.Duration

	// Observer receives pool lifecycle events.
	// Optional - if nil, events are not reported.
	Observer PoolObserver
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:    constants.DefaultMaxPoolSize,
		IdleTimeout: 5 * time.Minute,
		MaxLifetime: 30 * time.Minute,
		WaitTimeout: constants.DefaultPoolWaitTimeout,
	}
}

// Validate checks the configuration for errors.
func (c *PoolConfig) Validate() error {
	if c.MaxConns < 0 {
		return errors.New("pool: MaxConns cannot be negative")
	}
	if c.IdleTimeout < 0 {
		return errors.New("pool: IdleTimeout cannot be negative")
	}
	if c.MaxLifetime < 0 {
		return errors.New("pool: MaxLifetime cannot be negative")
	}
	return nil
}

// applyDefaults fills in zero values with defaults.
func (c *PoolConfig) applyDefaults() {
	defaults := DefaultPoolConfig()

	if c.MaxConns == 0 {
		c.MaxConns = defaults.MaxConns
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaults.IdleTimeout
	}
	if c.MaxLifetime == 0 {
		c.MaxLifetime = defaults.MaxLifetime
	}
	if c.WaitTimeout == 0 {
		c.WaitTimeout = defaults.WaitTimeout
	}
}
