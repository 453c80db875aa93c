// Package transport provides TCP connections speaking the Corvus wire
// protocol, in both synchronous and callback-driven asynchronous flavors,
// plus the factories the driver uses to open them.
package transport

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// Conn is a synchronous wire-protocol connection over TCP. Writes are
// serialized; reads assume one reader at a time.
type Conn struct {
	id      string
	address driver.Address
	nc      net.Conn
	codec   *wire.Codec
	config  Config
	logger  *slog.Logger

	writeMu sync.Mutex
	readMu  sync.Mutex
	closed  atomic.Bool
}

var _ driver.Connection = (*Conn)(nil)

func newConn(nc net.Conn, address driver.Address, config Config) *Conn {
	id := uuid.NewString()
	return &Conn{
		id:      id,
		address: address,
		nc:      nc,
		codec:   wire.NewCodec(),
		config:  config,
		logger:  config.Logger.With("conn_id", id, "address", address.String()),
	}
}

// ID returns the connection's unique identifier, used in logs.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Address() driver.Address {
	return c.address
}

// SendMessage writes one message. The write deadline is the earlier of the
// context deadline and the configured write timeout.
func (c *Conn) SendMessage(ctx context.Context, msg *wire.Message) error {
	if c.closed.Load() {
		return cerrors.ErrConnClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.nc.SetWriteDeadline(c.deadline(ctx, c.config.WriteTimeout)); err != nil {
		return cerrors.NewConnError("send", err)
	}
	if err := c.codec.Encode(c.nc, msg); err != nil {
		c.logger.Debug("message write failed", "error", err)
		return cerrors.NewConnError("send", err)
	}
	return nil
}

// ReceiveMessage reads one reply.
func (c *Conn) ReceiveMessage(ctx context.Context) (*wire.Reply, error) {
	if c.closed.Load() {
		return nil, cerrors.ErrConnClosed
	}

	c.readMu.Lock()
	defer c.readMu.Unlock()

	if err := c.nc.SetReadDeadline(c.deadline(ctx, c.config.ReadTimeout)); err != nil {
		return nil, cerrors.NewConnError("receive", err)
	}
	reply, err := c.codec.Decode(c.nc)
	if err != nil {
		c.logger.Debug("message read failed", "error", err)
		return nil, cerrors.NewConnError("receive", err)
	}
	return reply, nil
}

// SendAndReceiveMessage writes one message and reads its reply.
func (c *Conn) SendAndReceiveMessage(ctx context.Context, msg *wire.Message) (*wire.Reply, error) {
	if err := c.SendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return c.ReceiveMessage(ctx)
}

// Close closes the underlying socket. Idempotent.
func (c *Conn) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.logger.Debug("connection closed")
	return c.nc.Close()
}

func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

// deadline picks the earlier of the context deadline and now+timeout. A
// zero time disables the deadline.
func (c *Conn) deadline(ctx context.Context, timeout time.Duration) time.Time {
	var d time.Time
	if timeout > 0 {
		d = time.Now().Add(timeout)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (d.IsZero() || ctxDeadline.Before(d)) {
		d = ctxDeadline
	}
	return d
}
