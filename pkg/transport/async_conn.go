package transport

import (
	"context"
	"log/slog"
	"sync"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// AsyncConn adapts a synchronous Conn to the callback-driven interface. A
// single reader goroutine drains replies and completes pending callbacks in
// submission order, so callbacks never run on the caller's goroutine.
type AsyncConn struct {
	conn   *Conn
	logger *slog.Logger

	mu      sync.Mutex
	pending []pendingRead
	notify  chan struct{}
	done    chan struct{}
	closing bool
}

type pendingRead struct {
	ctx      context.Context
	callback driver.ResultCallback
}

var _ driver.AsyncConnection = (*AsyncConn)(nil)

// NewAsyncConn wraps conn and starts its reader goroutine. Closing the
// AsyncConn closes conn.
func NewAsyncConn(conn *Conn) *AsyncConn {
	a := &AsyncConn{
		conn:   conn,
		logger: conn.logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go a.readLoop()
	return a
}

func (a *AsyncConn) Address() driver.Address {
	return a.conn.Address()
}

// SendMessage performs a full round trip: the message is written and the
// callback receives the node's reply.
func (a *AsyncConn) SendMessage(ctx context.Context, msg *wire.Message, callback driver.ResultCallback) {
	a.SendAndReceiveMessage(ctx, msg, callback)
}

// SendAndReceiveMessage writes msg and registers callback to receive the
// matching reply. The write happens on the caller's goroutine; the callback
// runs on the reader goroutine.
func (a *AsyncConn) SendAndReceiveMessage(ctx context.Context, msg *wire.Message, callback driver.ResultCallback) {
	if a.conn.IsClosed() {
		go callback(nil, cerrors.ErrConnClosed)
		return
	}
	if err := a.conn.SendMessage(ctx, msg); err != nil {
		go callback(nil, err)
		return
	}
	a.ReceiveMessage(ctx, callback)
}

// ReceiveMessage registers callback for the next unclaimed reply.
func (a *AsyncConn) ReceiveMessage(ctx context.Context, callback driver.ResultCallback) {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		go callback(nil, cerrors.ErrConnClosed)
		return
	}
	a.pending = append(a.pending, pendingRead{ctx: ctx, callback: callback})
	a.mu.Unlock()

	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// readLoop completes pending callbacks in FIFO order, one reply each.
func (a *AsyncConn) readLoop() {
	for {
		select {
		case <-a.done:
			return
		case <-a.notify:
		}

		for {
			a.mu.Lock()
			if len(a.pending) == 0 {
				a.mu.Unlock()
				break
			}
			p := a.pending[0]
			a.pending = a.pending[1:]
			a.mu.Unlock()

			reply, err := a.conn.ReceiveMessage(p.ctx)
			p.callback(reply, err)

			if err != nil && a.conn.IsClosed() {
				a.failPending(cerrors.ErrConnClosed)
				return
			}
		}
	}
}

// failPending drains the queue, completing every waiter with err.
func (a *AsyncConn) failPending(err error) {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.closing = true
	a.mu.Unlock()

	for _, p := range pending {
		p.callback(nil, err)
	}
}

// Close stops the reader, fails any pending callbacks, and closes the
// underlying connection. Idempotent.
func (a *AsyncConn) Close() error {
	a.mu.Lock()
	if a.closing {
		a.mu.Unlock()
		return nil
	}
	a.closing = true
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	close(a.done)
	err := a.conn.Close()

	for _, p := range pending {
		p.callback(nil, cerrors.ErrConnClosed)
	}
	return err
}

func (a *AsyncConn) IsClosed() bool {
	return a.conn.IsClosed()
}
