package driver

import (
	"context"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// DelayedCloseConnection lets a holder treat a connection as logically
// closed while the underlying resource stays usable for callers already in
// flight; its physical closure is driven elsewhere. Close flips only this
// decorator's flag and leaves the wrapped connection open. Not safe for
// concurrent use.
type DelayedCloseConnection struct {
	wrapped Connection
	closed  bool
}

var _ Connection = (*DelayedCloseConnection)(nil)

// NewDelayedCloseConnection wraps an open connection.
func NewDelayedCloseConnection(wrapped Connection) *DelayedCloseConnection {
	return &DelayedCloseConnection{wrapped: wrapped}
}

func (c *DelayedCloseConnection) Address() Address {
	return c.wrapped.Address()
}

// SendMessage delegates to the wrapped connection's send-and-receive and
// discards the reply.
func (c *DelayedCloseConnection) SendMessage(ctx context.Context, msg *wire.Message) error {
	if c.closed {
		return cerrors.ErrConnClosed
	}
	_, err := c.wrapped.SendAndReceiveMessage(ctx, msg)
	return err
}

func (c *DelayedCloseConnection) SendAndReceiveMessage(ctx context.Context, msg *wire.Message) (*wire.Reply, error) {
	if c.closed {
		return nil, cerrors.ErrConnClosed
	}
	return c.wrapped.SendAndReceiveMessage(ctx, msg)
}

func (c *DelayedCloseConnection) ReceiveMessage(ctx context.Context) (*wire.Reply, error) {
	if c.closed {
		return nil, cerrors.ErrConnClosed
	}
	return c.wrapped.ReceiveMessage(ctx)
}

// Close marks this decorator closed. The wrapped connection is not touched.
func (c *DelayedCloseConnection) Close() error {
	c.closed = true
	return nil
}

// IsClosed reports the decorator's own flag, not the wrapped connection's.
func (c *DelayedCloseConnection) IsClosed() bool {
	return c.closed
}
