package driver

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	cerrors "github.com/corvusdb/corvus-go/internal/errors"
)

// closable is the minimal contract a pooled connection must satisfy.
type closable interface {
	Close() error
}

// ConnectionPool leases and reclaims connections of type C. Get may block
// the caller and may fail; failures propagate unchanged to the pool's user.
type ConnectionPool[C closable] interface {
	Get(ctx context.Context) (*Lease[C], error)
	Close() error
}

// Pool is a bounded pool of reusable connections to one node. Leasing is
// checkout/return: Get hands out a Lease, releasing the lease returns the
// connection for reuse.
type Pool[C closable] struct {
	factory func(ctx context.Context) (C, error)
	config  PoolConfig
	logger  *slog.Logger

	mu      sync.Mutex
	conns   []*pooledConn[C] // All connections (idle + leased)
	idle    []*pooledConn[C] // Available connections (LIFO for reuse locality)
	waiters []chan *pooledConn[C]
	closed  bool

	stats PoolStats
}

// PoolStats counts pool activity. All fields are updated atomically.
type PoolStats struct {
	Gets     atomic.Int64
	Reused   atomic.Int64
	Timeouts atomic.Int64
	Created  atomic.Int64
	Closed   atomic.Int64
}

// PoolStatsSnapshot is a point-in-time copy of pool statistics.
type PoolStatsSnapshot struct {
	Gets     int64
	Reused   int64
	Timeouts int64
	Created  int64
	Closed   int64
	Total    int
	Idle     int
}

// NewPool creates a pool that obtains connections from factory.
func NewPool[C closable](factory func(ctx context.Context) (C, error), config PoolConfig, logger *slog.Logger) (*Pool[C], error) {
	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Pool[C]{
		factory: factory,
		config:  config,
		logger:  logger,
		conns:   make([]*pooledConn[C], 0, config.MaxConns),
		idle:    make([]*pooledConn[C], 0, config.MaxConns),
	}, nil
}

// Get leases a connection, waiting up to WaitTimeout when the pool is
// exhausted. The returned lease must be released or discarded.
func (p *Pool[C]) Get(ctx context.Context) (*Lease[C], error) {
	startTime := time.Now()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, cerrors.ErrPoolClosed
	}

	// Try idle connections, newest first.
	for len(p.idle) > 0 {
		pc := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]

		if p.isReusable(pc) {
			pc.inUse.Store(true)
			p.stats.Gets.Add(1)
			p.stats.Reused.Add(1)
			p.mu.Unlock()

			if p.config.Observer != nil {
				p.config.Observer.OnGet(time.Since(startTime), true)
			}
			return newLease(pc, p), nil
		}

		p.removeConnLocked(pc)
		go p.closeConn(pc, "stale")
	}

	// Room to grow?
	if p.config.MaxConns == 0 || len(p.conns) < p.config.MaxConns {
		p.mu.Unlock()
		return p.createAndLease(ctx, startTime)
	}

	if p.config.WaitTimeout < 0 {
		p.mu.Unlock()
		p.stats.Timeouts.Add(1)
		if p.config.Observer != nil {
			p.config.Observer.OnGetTimeout()
		}
		return nil, cerrors.ErrPoolExhausted
	}

	// Pool is exhausted, wait for a release.
	ch := make(chan *pooledConn[C], 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	timeout := p.config.WaitTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case pc := <-ch:
		if pc == nil {
			// Channel closed, pool is closing.
			return nil, cerrors.ErrPoolClosed
		}

		if !p.isReusable(pc) {
			p.mu.Lock()
			p.removeConnLocked(pc)
			p.mu.Unlock()
			go p.closeConn(pc, "stale")
			return p.Get(ctx)
		}

		pc.inUse.Store(true)
		p.stats.Gets.Add(1)
		p.stats.Reused.Add(1)
		if p.config.Observer != nil {
			p.config.Observer.OnGet(time.Since(startTime), true)
		}
		return newLease(pc, p), nil

	case <-timer.C:
		p.abandonWaiter(ch)
		p.stats.Timeouts.Add(1)
		if p.config.Observer != nil {
			p.config.Observer.OnGetTimeout()
		}
		return nil, cerrors.ErrPoolTimeout

	case <-ctx.Done():
		p.abandonWaiter(ch)
		p.stats.Timeouts.Add(1)
		if p.config.Observer != nil {
			p.config.Observer.OnGetTimeout()
		}
		return nil, ctx.Err()
	}
}

// Close closes all connections and prevents new leases.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil

	connsToClose := make([]*pooledConn[C], len(p.conns))
	copy(connsToClose, p.conns)
	p.conns = nil
	p.idle = nil
	p.mu.Unlock()

	for _, pc := range connsToClose {
		p.closeConn(pc, "pool_closed")
	}

	return nil
}

// Stats returns a snapshot of pool statistics.
func (p *Pool[C]) Stats() PoolStatsSnapshot {
	p.mu.Lock()
	total, idle := len(p.conns), len(p.idle)
	p.mu.Unlock()

	return PoolStatsSnapshot{
		Gets:     p.stats.Gets.Load(),
		Reused:   p.stats.Reused.Load(),
		Timeouts: p.stats.Timeouts.Load(),
		Created:  p.stats.Created.Load(),
		Closed:   p.stats.Closed.Load(),
		Total:    total,
		Idle:     idle,
	}
}

// Size returns the current total number of connections (idle + leased).
func (p *Pool[C]) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// IdleCount returns the current number of idle connections.
func (p *Pool[C]) IdleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

// release returns a connection to the pool.
func (p *Pool[C]) release(pc *pooledConn[C]) error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		p.closeConn(pc, "pool_closed")
		return nil
	}

	pc.inUse.Store(false)

	if pc.unhealthy.Load() {
		p.removeConnLocked(pc)
		p.mu.Unlock()
		p.closeConn(pc, "unhealthy")
		return nil
	}

	// Hand off to the oldest waiter, if any.
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		pc.inUse.Store(true)
		p.mu.Unlock()
		ch <- pc
		return nil
	}

	p.idle = append(p.idle, pc)
	p.mu.Unlock()

	if p.config.Observer != nil {
		p.config.Observer.OnRelease()
	}
	return nil
}

// createAndLease creates a new connection and leases it immediately.
func (p *Pool[C]) createAndLease(ctx context.Context, startTime time.Time) (*Lease[C], error) {
	dialStart := time.Now()
	conn, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}
	pc := newPooledConn(conn)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return nil, cerrors.ErrPoolClosed
	}

	pc.inUse.Store(true)
	p.conns = append(p.conns, pc)
	p.stats.Gets.Add(1)
	p.stats.Created.Add(1)
	p.mu.Unlock()

	if p.config.Observer != nil {
		p.config.Observer.OnConnectionCreated(time.Since(dialStart))
		p.config.Observer.OnGet(time.Since(startTime), false)
	}

	return newLease(pc, p), nil
}

// isReusable reports whether an idle connection may be handed out again.
func (p *Pool[C]) isReusable(pc *pooledConn[C]) bool {
	if pc.unhealthy.Load() {
		return false
	}
	if p.config.MaxLifetime > 0 && pc.age() > p.config.MaxLifetime {
		return false
	}
	if p.config.IdleTimeout > 0 && pc.idleTime() > p.config.IdleTimeout {
		return false
	}
	return true
}

// removeConnLocked removes a connection from the pool (must hold lock).
func (p *Pool[C]) removeConnLocked(pc *pooledConn[C]) {
	for i, c := range p.conns {
		if c == pc {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			break
		}
	}
	for i, c := range p.idle {
		if c == pc {
			p.idle = append(p.idle[:i], p.idle[i+1:]...)
			break
		}
	}
}

// abandonWaiter removes a wait channel after a timeout or cancellation,
// recovering any connection that was handed off concurrently.
func (p *Pool[C]) abandonWaiter(ch chan *pooledConn[C]) {
	p.mu.Lock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			p.mu.Unlock()
			return
		}
	}
	p.mu.Unlock()

	// A release already picked this waiter; put the connection back.
	select {
	case pc := <-ch:
		if pc != nil {
			_ = p.release(pc)
		}
	default:
	}
}

func (p *Pool[C]) closeConn(pc *pooledConn[C], reason string) {
	if err := pc.conn.Close(); err != nil {
		p.logger.Debug("pool connection close failed", "reason", reason, "error", err)
	}
	p.stats.Closed.Add(1)
	if p.config.Observer != nil {
		p.config.Observer.OnConnectionClosed(reason)
	}
}

// pooledConn tracks the metadata the pool needs per connection.
type pooledConn[C closable] struct {
	conn      C
	createdAt time.Time
	useMu     sync.Mutex // Protects lastUsed
	lastUsed  time.Time
	inUse     atomic.Bool
	unhealthy atomic.Bool
}

func newPooledConn[C closable](conn C) *pooledConn[C] {
	now := time.Now()
	return &pooledConn[C]{
		conn:      conn,
		createdAt: now,
		lastUsed:  now,
	}
}

func (pc *pooledConn[C]) markUsed() {
	pc.useMu.Lock()
	pc.lastUsed = time.Now()
	pc.useMu.Unlock()
}

func (pc *pooledConn[C]) age() time.Duration {
	return time.Since(pc.createdAt)
}

func (pc *pooledConn[C]) idleTime() time.Duration {
	pc.useMu.Lock()
	defer pc.useMu.Unlock()
	return time.Since(pc.lastUsed)
}

// Lease is the handle returned from Get. Exactly one of Release and Discard
// ends the lease; both are idempotent.
type Lease[C closable] struct {
	pc       *pooledConn[C]
	pool     *Pool[C]
	released atomic.Bool
}

func newLease[C closable](pc *pooledConn[C], pool *Pool[C]) *Lease[C] {
	return &Lease[C]{pc: pc, pool: pool}
}

// Conn returns the leased connection. It must not be used after the lease
// ends.
func (l *Lease[C]) Conn() C {
	return l.pc.conn
}

// Release returns the connection to the pool for reuse.
func (l *Lease[C]) Release() error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	l.pc.markUsed()
	return l.pool.release(l.pc)
}

// Discard marks the connection unhealthy and removes it from the pool. Use
// this instead of Release when the connection is in an unknown state.
func (l *Lease[C]) Discard() error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	l.pc.unhealthy.Store(true)
	return l.pool.release(l.pc)
}
