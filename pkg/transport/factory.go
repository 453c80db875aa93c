package transport

import (
	"context"
	"fmt"
	"net"

	"github.com/corvusdb/corvus-go/internal/auth"
	"github.com/corvusdb/corvus-go/internal/constants"
	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// Factory dials synchronous TCP connections. It implements
// driver.ConnectionFactory.
type Factory struct {
	config Config
}

var _ driver.ConnectionFactory = (*Factory)(nil)

// NewFactory creates a connection factory.
func NewFactory(config Config) (*Factory, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Factory{config: config}, nil
}

// Create dials the address and, when a credential is configured, runs the
// SCRAM handshake before handing the connection out.
func (f *Factory) Create(ctx context.Context, address driver.Address) (driver.Connection, error) {
	conn, err := f.dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (f *Factory) dial(ctx context.Context, address driver.Address) (*Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, f.config.DialTimeout)
	defer cancel()

	var d net.Dialer
	nc, err := d.DialContext(dialCtx, "tcp", address.String())
	if err != nil {
		return nil, cerrors.NewConnError("dial", err)
	}

	conn := newConn(nc, address, f.config)

	if f.config.Credential != nil {
		if err := authenticate(dialCtx, conn, *f.config.Credential); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}

	conn.logger.Debug("connection established")
	return conn, nil
}

// AsyncFactory dials asynchronous connections. It implements
// driver.AsyncConnectionFactory.
type AsyncFactory struct {
	inner *Factory
}

var _ driver.AsyncConnectionFactory = (*AsyncFactory)(nil)

// NewAsyncFactory creates an asynchronous connection factory.
func NewAsyncFactory(config Config) (*AsyncFactory, error) {
	inner, err := NewFactory(config)
	if err != nil {
		return nil, err
	}
	return &AsyncFactory{inner: inner}, nil
}

// Create dials the address and wraps the connection with a reader loop. The
// handshake, if any, completes before the loop starts.
func (f *AsyncFactory) Create(ctx context.Context, address driver.Address) (driver.AsyncConnection, error) {
	conn, err := f.inner.dial(ctx, address)
	if err != nil {
		return nil, err
	}
	return NewAsyncConn(conn), nil
}

// saslStartResult is the reply document of the saslStart command.
type saslStartResult struct {
	wire.CommandStatus
	ConversationID int    `json:"conversationId"`
	Payload        string `json:"payload"`
	Done           bool   `json:"done"`
}

// authenticate runs the SCRAM-SHA-256 conversation over conn.
func authenticate(ctx context.Context, conn *Conn, cred auth.Credential) error {
	conv, err := auth.NewConversation(cred)
	if err != nil {
		return err
	}

	start, err := wire.NewCommand(map[string]any{
		"saslStart": 1,
		"mechanism": constants.ScramMechanism,
		"payload":   conv.ClientFirst(),
	})
	if err != nil {
		return err
	}
	first, err := roundTrip(ctx, conn, start)
	if err != nil {
		return err
	}

	clientFinal, err := conv.HandleServerFirst(first.Payload)
	if err != nil {
		return err
	}

	cont, err := wire.NewCommand(map[string]any{
		"saslContinue":   1,
		"conversationId": first.ConversationID,
		"payload":        clientFinal,
	})
	if err != nil {
		return err
	}
	final, err := roundTrip(ctx, conn, cont)
	if err != nil {
		return err
	}

	if err := conv.VerifyServerFinal(final.Payload); err != nil {
		return err
	}
	if !final.Done {
		return cerrors.ErrAuthFailed
	}
	return nil
}

func roundTrip(ctx context.Context, conn *Conn, cmd *wire.Message) (*saslStartResult, error) {
	reply, err := conn.SendAndReceiveMessage(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var result saslStartResult
	if err := reply.Decode(&result); err != nil {
		return nil, err
	}
	if result.OK != 1 {
		return nil, fmt.Errorf("%w: %s", cerrors.ErrAuthFailed, result.ErrMsg)
	}
	return &result, nil
}
