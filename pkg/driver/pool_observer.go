package driver

import "time"

// PoolObserver provides hooks for pool lifecycle events.
// Implementations should be lightweight; callbacks may run on hot paths.
type PoolObserver interface {
	// OnGet is called when a connection is leased from the pool.
	OnGet(waitDuration time.Duration, reused bool)

	// OnGetTimeout is called when Get gives up waiting for a connection.
	OnGetTimeout()

	// OnRelease is called when a connection is returned to the pool.
	OnRelease()

	// OnConnectionCreated is called when a new connection is established.
	OnConnectionCreated(dialDuration time.Duration)

	// OnConnectionClosed is called when a connection is removed from the pool.
	OnConnectionClosed(reason string)
}

// NoOpPoolObserver is a no-op implementation of PoolObserver.
type NoOpPoolObserver struct{}

var _ PoolObserver = (*NoOpPoolObserver)(nil)

// OnGet implements PoolObserver.
func (NoOpPoolObserver) OnGet(time.Duration, bool) {}

// OnGetTimeout implements PoolObserver.
func (NoOpPoolObserver) OnGetTimeout() {}

// OnRelease implements PoolObserver.
func (NoOpPoolObserver) OnRelease() {}

// OnConnectionCreated implements PoolObserver.
func (NoOpPoolObserver) OnConnectionCreated(time.Duration) {}

// OnConnectionClosed implements PoolObserver.
func (NoOpPoolObserver) OnConnectionClosed(string) {}
