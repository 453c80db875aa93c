package driver

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
)

// Server manages the driver's view of one node: it owns the sync and async
// connection pools, the heartbeat monitor, and the cached description, and
// hands out connection wrappers that invalidate that cache on operational
// failure.
type Server struct {
	address   Address
	scheduler Scheduler
	pool      *Pool[Connection]
	asyncPool *Pool[AsyncConnection] // nil when async is not configured
	monitor   *Monitor
	handle    Handle
	listeners listenerSet
	logger    *slog.Logger
	tracer    trace.Tracer

	// description is the last known snapshot, swapped whole on every
	// update so readers always see a consistent value. nil means unknown.
	description atomic.Pointer[Description]
	closed      atomic.Bool
}

// NewServer creates a server for one node and starts its heartbeat: the
// first probe runs immediately, then once per HeartbeatInterval on the
// shared scheduler. asyncFactory may be nil, in which case
// GetAsyncConnection fails with errors.ErrAsyncUnsupported.
func NewServer(address Address, factory ConnectionFactory, asyncFactory AsyncConnectionFactory, scheduler Scheduler, config ServerConfig) (*Server, error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		address:   address,
		scheduler: scheduler,
		logger:    config.Logger,
		tracer:    newTracer(config.TracerProvider),
	}

	var err error
	s.pool, err = NewPool(func(ctx context.Context) (Connection, error) {
		return factory.Create(ctx, address)
	}, config.Pool, config.Logger)
	if err != nil {
		return nil, err
	}

	if asyncFactory != nil {
		s.asyncPool, err = NewPool(func(ctx context.Context) (AsyncConnection, error) {
			return asyncFactory.Create(ctx, address)
		}, config.Pool, config.Logger)
		if err != nil {
			return nil, err
		}
	}

	s.monitor = newMonitor(address, factory, &serverStateListener{server: s},
		config.ProbeTimeout, config.Logger, s.tracer)
	s.handle = scheduler.ScheduleAtFixedRate(s.monitor.Run, 0, config.HeartbeatInterval)

	return s, nil
}

// GetConnection leases a synchronous connection. Pool errors propagate
// unchanged; a closed server fails with errors.ErrServerClosed.
func (s *Server) GetConnection(ctx context.Context) (Connection, error) {
	if s.closed.Load() {
		return nil, cerrors.ErrServerClosed
	}

	ctx, end := startSpan(ctx, s.tracer, "corvus.get_connection",
		attribute.String("server.address", s.address.String()))

	lease, err := s.pool.Get(ctx)
	end(err)
	if err != nil {
		return nil, err
	}
	return &serverConnection{server: s, lease: lease}, nil
}

// GetAsyncConnection leases an asynchronous connection. Pool errors
// propagate unchanged.
func (s *Server) GetAsyncConnection(ctx context.Context) (AsyncConnection, error) {
	if s.closed.Load() {
		return nil, cerrors.ErrServerClosed
	}
	if s.asyncPool == nil {
		return nil, cerrors.ErrAsyncUnsupported
	}

	ctx, end := startSpan(ctx, s.tracer, "corvus.get_async_connection",
		attribute.String("server.address", s.address.String()))

	lease, err := s.asyncPool.Get(ctx)
	end(err)
	if err != nil {
		return nil, err
	}
	return &serverAsyncConnection{server: s, lease: lease}, nil
}

// Address returns the node's address.
func (s *Server) Address() Address {
	return s.address
}

// GetDescription returns the last cached description, or nil when the
// node's state is unknown. It is eventually consistent: freshness is
// bounded only by the heartbeat interval.
func (s *Server) GetDescription() *Description {
	return s.description.Load()
}

// AddChangeListener registers a listener for future state changes. The
// current cached state is not replayed to the new listener.
func (s *Server) AddChangeListener(l StateListener) {
	s.listeners.add(l)
}

// Invalidate discards the cached description and forces one immediate
// off-cycle probe.
func (s *Server) Invalidate() {
	s.description.Store(nil)
	s.scheduler.Submit(s.monitor.Run)
}

// Close stops the heartbeat and closes both pools. Idempotent.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.handle.Stop()
	s.monitor.Close()

	err := s.pool.Close()
	if s.asyncPool != nil {
		err = errors.Join(err, s.asyncPool.Close())
	}
	return err
}

// handleError is invoked by connection wrappers on any operational failure.
// The failure's kind is not inspected.
func (s *Server) handleError() {
	s.Invalidate()
}

// serverStateListener receives probe outcomes, updates the cache, and fans
// out to registered listeners.
type serverStateListener struct {
	server *Server
}

func (l *serverStateListener) DescriptionUpdated(description *Description) {
	l.server.description.Store(description)
	l.server.listeners.broadcastUpdated(description)
}

func (l *serverStateListener) Error(err error) {
	l.server.description.Store(nil)
	l.server.listeners.broadcastError(err)
}
