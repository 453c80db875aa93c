package driver

import (
	"context"

	"github.com/corvusdb/corvus-go/pkg/wire"
)

// Connection is a synchronous connection to a single node. Implementations
// are not required to be safe for concurrent use; each connection belongs to
// one caller at a time.
type Connection interface {
	// Address returns the address of the node this connection talks to.
	Address() Address

	// SendMessage writes one message to the node.
	SendMessage(ctx context.Context, msg *wire.Message) error

	// SendAndReceiveMessage writes one message and blocks for its reply.
	SendAndReceiveMessage(ctx context.Context, msg *wire.Message) (*wire.Reply, error)

	// ReceiveMessage blocks for the next reply.
	ReceiveMessage(ctx context.Context) (*wire.Reply, error)

	// Close releases the connection. Further operations fail with
	// errors.ErrConnClosed.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// ResultCallback receives the outcome of an asynchronous operation. Exactly
// one of reply and err is set.
type ResultCallback func(reply *wire.Reply, err error)

// AsyncConnection is a callback-based connection to a single node.
// Completion callbacks run on the transport's thread; callers must not
// block inside them.
type AsyncConnection interface {
	// Address returns the address of the node this connection talks to.
	Address() Address

	// SendMessage writes one message and reports completion to callback.
	SendMessage(ctx context.Context, msg *wire.Message, callback ResultCallback)

	// SendAndReceiveMessage writes one message and delivers its reply to
	// callback.
	SendAndReceiveMessage(ctx context.Context, msg *wire.Message, callback ResultCallback)

	// ReceiveMessage delivers the next reply to callback.
	ReceiveMessage(ctx context.Context, callback ResultCallback)

	// Close releases the connection.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// ConnectionFactory produces raw synchronous connections to an address.
type ConnectionFactory interface {
	Create(ctx context.Context, address Address) (Connection, error)
}

// AsyncConnectionFactory produces raw asynchronous connections to an address.
type AsyncConnectionFactory interface {
	Create(ctx context.Context, address Address) (AsyncConnection, error)
}
