package driver

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

// Monitor probes one node out of band: each run opens a transient
// connection, issues the hello command, and reports the parsed description
// (or the failure) to a single listener. Runs are triggered by the server's
// periodic schedule and by off-cycle submissions after an invalidation; the
// two may overlap, and whichever completion reports last wins.
type Monitor struct {
	address  Address
	factory  ConnectionFactory
	listener StateListener
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	closed   atomic.Bool
}

// newMonitor creates a monitor reporting to listener.
func newMonitor(address Address, factory ConnectionFactory, listener StateListener, timeout time.Duration, logger *slog.Logger, tracer trace.Tracer) *Monitor {
	return &Monitor{
		address:  address,
		factory:  factory,
		listener: listener,
		timeout:  timeout,
		logger:   logger,
		tracer:   tracer,
	}
}

// Run executes one probe. Failures are reported to the listener and
// swallowed so a scheduled run never breaks the periodic chain. Runs
// invoked after Close do nothing.
func (m *Monitor) Run() {
	if m.closed.Load() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	ctx, end := startSpan(ctx, m.tracer, "corvus.heartbeat",
		attribute.String("server.address", m.address.String()))

	description, err := m.probe(ctx)
	end(err)

	if err != nil {
		m.logger.Warn("server probe failed", "address", m.address.String(), "error", err)
		m.listener.Error(cerrors.NewProbeError(m.address.String(), err))
		return
	}

	m.logger.Debug("server probe completed",
		"address", m.address.String(), "role", string(description.Role))
	m.listener.DescriptionUpdated(description)
}

// probe opens a transient connection and issues the hello command.
func (m *Monitor) probe(ctx context.Context) (*Description, error) {
	conn, err := m.factory.Create(ctx, m.address)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Close() }()

	cmd, err := wire.NewCommand(wire.HelloCommand())
	if err != nil {
		return nil, err
	}

	reply, err := conn.SendAndReceiveMessage(ctx, cmd)
	if err != nil {
		return nil, err
	}

	var result wire.HelloResult
	if err := reply.Decode(&result); err != nil {
		return nil, err
	}
	if result.OK != 1 {
		return nil, cerrors.ErrCommandFailed
	}

	return newDescription(m.address, &result), nil
}

// Close marks the monitor closed. Idempotent. An already-dispatched run may
// still complete and report; runs starting after Close do not.
func (m *Monitor) Close() {
	m.closed.Store(true)
}
