package driver

import (
	"context"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// serverConnection decorates one leased synchronous connection: every
// operation is guarded by an open check, and any failure from the wrapped
// connection invalidates the server's cached description before the error
// is returned unchanged. Not safe for concurrent use; a lease belongs to
// one caller.
type serverConnection struct {
	server *Server
	lease  *Lease[Connection]
}

var _ Connection = (*serverConnection)(nil)

func (c *serverConnection) Address() Address {
	return c.server.address
}

func (c *serverConnection) SendMessage(ctx context.Context, msg *wire.Message) error {
	if c.lease == nil {
		return cerrors.ErrConnClosed
	}
	if err := c.lease.Conn().SendMessage(ctx, msg); err != nil {
		c.server.handleError()
		return err
	}
	return nil
}

func (c *serverConnection) SendAndReceiveMessage(ctx context.Context, msg *wire.Message) (*wire.Reply, error) {
	if c.lease == nil {
		return nil, cerrors.ErrConnClosed
	}
	reply, err := c.lease.Conn().SendAndReceiveMessage(ctx, msg)
	if err != nil {
		c.server.handleError()
		return nil, err
	}
	return reply, nil
}

func (c *serverConnection) ReceiveMessage(ctx context.Context) (*wire.Reply, error) {
	if c.lease == nil {
		return nil, cerrors.ErrConnClosed
	}
	reply, err := c.lease.Conn().ReceiveMessage(ctx)
	if err != nil {
		c.server.handleError()
		return nil, err
	}
	return reply, nil
}

// Close returns the leased connection to the pool. Idempotent.
func (c *serverConnection) Close() error {
	if c.lease == nil {
		return nil
	}
	lease := c.lease
	c.lease = nil
	return lease.Release()
}

func (c *serverConnection) IsClosed() bool {
	return c.lease == nil
}

// serverAsyncConnection is the asynchronous counterpart: the open guard
// fails fast through the callback, and an adapting callback invalidates the
// cache before forwarding a failed result. Exactly one forward happens per
// initiated operation.
type serverAsyncConnection struct {
	server *Server
	lease  *Lease[AsyncConnection]
}

var _ AsyncConnection = (*serverAsyncConnection)(nil)

func (c *serverAsyncConnection) Address() Address {
	return c.server.address
}

// SendMessage delegates to the wrapped connection's send-and-receive and
// discards nothing: the reply is forwarded to the callback, matching the
// round-trip behavior callers of this wrapper rely on.
func (c *serverAsyncConnection) SendMessage(ctx context.Context, msg *wire.Message, callback ResultCallback) {
	if c.lease == nil {
		callback(nil, cerrors.ErrConnClosed)
		return
	}
	c.lease.Conn().SendAndReceiveMessage(ctx, msg, c.invalidating(callback))
}

func (c *serverAsyncConnection) SendAndReceiveMessage(ctx context.Context, msg *wire.Message, callback ResultCallback) {
	if c.lease == nil {
		callback(nil, cerrors.ErrConnClosed)
		return
	}
	c.lease.Conn().SendAndReceiveMessage(ctx, msg, c.invalidating(callback))
}

func (c *serverAsyncConnection) ReceiveMessage(ctx context.Context, callback ResultCallback) {
	if c.lease == nil {
		callback(nil, cerrors.ErrConnClosed)
		return
	}
	c.lease.Conn().ReceiveMessage(ctx, c.invalidating(callback))
}

// Close returns the leased connection to the pool. Idempotent.
func (c *serverAsyncConnection) Close() error {
	if c.lease == nil {
		return nil
	}
	lease := c.lease
	c.lease = nil
	return lease.Release()
}

func (c *serverAsyncConnection) IsClosed() bool {
	return c.lease == nil
}

// invalidating wraps a caller callback so that a failed result invalidates
// the server's cache before the original result is forwarded. The
// invalidation is complete by the time the caller's callback observes the
// failure.
func (c *serverAsyncConnection) invalidating(callback ResultCallback) ResultCallback {
	return func(reply *wire.Reply, err error) {
		if err != nil {
			c.server.handleError()
		}
		callback(reply, err)
	}
}
