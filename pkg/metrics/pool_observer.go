// Package metrics provides observability primitives for the corvus-go
// driver: counters and histograms for pool and heartbeat activity, plus a
// Prometheus text-format exporter.
package metrics

import (
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/corvusdb/corvus-go/pkg/driver"
)

// Default bucket configurations for pool histograms.
var (
	// PoolGetLatencyBuckets for lease wait duration (milliseconds).
	PoolGetLatencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000}

	// PoolDialLatencyBuckets for dial duration (milliseconds).
	PoolDialLatencyBuckets = []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}
)

// PoolMetricsObserver implements driver.PoolObserver and records metrics.
type PoolMetricsObserver struct {
	// Gauges (current state)
	connectionsInUse atomic.Int64
	connectionsIdle  atomic.Int64

	// Counters (cumulative)
	getsTotal          atomic.Uint64
	getTimeoutsTotal   atomic.Uint64
	connectionsCreated atomic.Uint64
	connectionsClosed  atomic.Uint64

	// Histograms
	getLatency  *Histogram
	dialLatency *Histogram

	logger   *slog.Logger
	poolName string
}

// PoolMetricsObserverConfig configures a pool metrics observer.
type PoolMetricsObserverConfig struct {
	Logger   *slog.Logger
	PoolName string
}

// NewPoolMetricsObserver creates a new pool metrics observer.
func NewPoolMetricsObserver(cfg PoolMetricsObserverConfig) *PoolMetricsObserver {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.PoolName == "" {
		cfg.PoolName = "default"
	}

	return &PoolMetricsObserver{
		getLatency:  NewHistogram(PoolGetLatencyBuckets),
		dialLatency: NewHistogram(PoolDialLatencyBuckets),
		logger:      cfg.Logger.With("pool", cfg.PoolName),
		poolName:    cfg.PoolName,
	}
}

var _ driver.PoolObserver = (*PoolMetricsObserver)(nil)

// OnGet implements driver.PoolObserver.
func (o *PoolMetricsObserver) OnGet(wait time.Duration, reused bool) {
	o.getsTotal.Add(1)
	o.getLatency.Observe(float64(wait.Milliseconds()))
	o.connectionsInUse.Add(1)
	if reused {
		o.connectionsIdle.Add(-1)
	}
}

// OnGetTimeout implements driver.PoolObserver.
func (o *PoolMetricsObserver) OnGetTimeout() {
	o.getTimeoutsTotal.Add(1)
	o.logger.Warn("pool get timed out")
}

// OnRelease implements driver.PoolObserver.
func (o *PoolMetricsObserver) OnRelease() {
	if o.connectionsInUse.Add(-1) < 0 {
		o.connectionsInUse.Store(0)
	}
	o.connectionsIdle.Add(1)
}

// OnConnectionCreated implements driver.PoolObserver.
func (o *PoolMetricsObserver) OnConnectionCreated(dialTime time.Duration) {
	o.connectionsCreated.Add(1)
	o.dialLatency.Observe(float64(dialTime.Milliseconds()))
}

// OnConnectionClosed implements driver.PoolObserver.
func (o *PoolMetricsObserver) OnConnectionClosed(reason string) {
	o.connectionsClosed.Add(1)
	o.logger.Debug("pool connection closed", "reason", reason)
}

// PoolSnapshot is a point-in-time copy of the observer's state.
type PoolSnapshot struct {
	PoolName           string
	ConnectionsInUse   int64
	ConnectionsIdle    int64
	GetsTotal          uint64
	GetTimeoutsTotal   uint64
	ConnectionsCreated uint64
	ConnectionsClosed  uint64
	GetLatency         HistogramSnapshot
	DialLatency        HistogramSnapshot
}

// Snapshot returns the current metric values.
func (o *PoolMetricsObserver) Snapshot() PoolSnapshot {
	idle := o.connectionsIdle.Load()
	if idle < 0 {
		idle = 0
	}
	return PoolSnapshot{
		PoolName:           o.poolName,
		ConnectionsInUse:   o.connectionsInUse.Load(),
		ConnectionsIdle:    idle,
		GetsTotal:          o.getsTotal.Load(),
		GetTimeoutsTotal:   o.getTimeoutsTotal.Load(),
		ConnectionsCreated: o.connectionsCreated.Load(),
		ConnectionsClosed:  o.connectionsClosed.Load(),
		GetLatency:         o.getLatency.Snapshot(),
		DialLatency:        o.dialLatency.Snapshot(),
	}
}
