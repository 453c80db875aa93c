package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// PrometheusExporter exports pool and server-state metrics in Prometheus
// text format. The namespace is prepended to every metric name.
type PrometheusExporter struct {
	namespace string
	pools     []*PoolMetricsObserver
	states    map[string]*StateMetricsListener // Keyed by node address
}

// NewPrometheusExporter creates an exporter.
func NewPrometheusExporter(namespace string) *PrometheusExporter {
	return &PrometheusExporter{
		namespace: namespace,
		states:    make(map[string]*StateMetricsListener),
	}
}

// AddPool registers a pool observer for export.
func (e *PrometheusExporter) AddPool(o *PoolMetricsObserver) {
	e.pools = append(e.pools, o)
}

// AddServerState registers a state listener for export, labeled by the
// node's address.
func (e *PrometheusExporter) AddServerState(address string, l *StateMetricsListener) {
	e.states[address] = l
}

// Handler returns an http.Handler that serves the metrics.
func (e *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		e.WriteMetrics(w)
	})
}

// WriteMetrics writes all registered metrics to w.
func (e *PrometheusExporter) WriteMetrics(w io.Writer) {
	for _, pool := range e.pools {
		snap := pool.Snapshot()
		labels := e.formatLabels(map[string]string{"pool": snap.PoolName})

		e.writeHelp(w, "pool_connections_in_use", "Connections currently leased out")
		e.writeType(w, "pool_connections_in_use", "gauge")
		e.writeMetric(w, "pool_connections_in_use", labels, float64(snap.ConnectionsInUse))

		e.writeHelp(w, "pool_connections_idle", "Connections currently idle")
		e.writeType(w, "pool_connections_idle", "gauge")
		e.writeMetric(w, "pool_connections_idle", labels, float64(snap.ConnectionsIdle))

		e.writeHelp(w, "pool_gets_total", "Total successful leases")
		e.writeType(w, "pool_gets_total", "counter")
		e.writeMetric(w, "pool_gets_total", labels, float64(snap.GetsTotal))

		e.writeHelp(w, "pool_get_timeouts_total", "Total leases that timed out waiting")
		e.writeType(w, "pool_get_timeouts_total", "counter")
		e.writeMetric(w, "pool_get_timeouts_total", labels, float64(snap.GetTimeoutsTotal))

		e.writeHelp(w, "pool_connections_created_total", "Total connections dialed")
		e.writeType(w, "pool_connections_created_total", "counter")
		e.writeMetric(w, "pool_connections_created_total", labels, float64(snap.ConnectionsCreated))

		e.writeHelp(w, "pool_connections_closed_total", "Total connections closed")
		e.writeType(w, "pool_connections_closed_total", "counter")
		e.writeMetric(w, "pool_connections_closed_total", labels, float64(snap.ConnectionsClosed))

		e.writeHistogram(w, "pool_get_latency_ms", labels, snap.GetLatency)
		e.writeHistogram(w, "pool_dial_latency_ms", labels, snap.DialLatency)
	}

	addresses := make([]string, 0, len(e.states))
	for address := range e.states {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)

	for _, address := range addresses {
		snap := e.states[address].Snapshot()
		labels := e.formatLabels(map[string]string{"address": address})

		e.writeHelp(w, "server_description_updates_total", "Total successful probes")
		e.writeType(w, "server_description_updates_total", "counter")
		e.writeMetric(w, "server_description_updates_total", labels, float64(snap.UpdatesTotal))

		e.writeHelp(w, "server_probe_errors_total", "Total failed probes")
		e.writeType(w, "server_probe_errors_total", "counter")
		e.writeMetric(w, "server_probe_errors_total", labels, float64(snap.ProbeErrorsTotal))

		known := 0.0
		if snap.DescriptionKnown {
			known = 1.0
		}
		e.writeHelp(w, "server_description_known", "Whether the node's state is currently known")
		e.writeType(w, "server_description_known", "gauge")
		e.writeMetric(w, "server_description_known", labels, known)
	}
}

// Serve starts an HTTP server exposing the metrics on addr at /metrics. It
// blocks until the server stops.
func (e *PrometheusExporter) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return server.ListenAndServe()
}

func (e *PrometheusExporter) writeHelp(w io.Writer, name, help string) {
	fmt.Fprintf(w, "# HELP %s_%s %s\n", e.namespace, name, help)
}

func (e *PrometheusExporter) writeType(w io.Writer, name, typ string) {
	fmt.Fprintf(w, "# TYPE %s_%s %s\n", e.namespace, name, typ)
}

func (e *PrometheusExporter) writeMetric(w io.Writer, name, labels string, value float64) {
	fmt.Fprintf(w, "%s_%s%s %g\n", e.namespace, name, labels, value)
}

func (e *PrometheusExporter) writeHistogram(w io.Writer, name, labels string, snap HistogramSnapshot) {
	e.writeHelp(w, name, "Latency distribution")
	e.writeType(w, name, "histogram")

	cumulative := uint64(0)
	for i, bound := range snap.Buckets {
		cumulative += snap.Counts[i]
		fmt.Fprintf(w, "%s_%s_bucket%s %d\n",
			e.namespace, name, e.appendLabel(labels, "le", fmt.Sprintf("%g", bound)), cumulative)
	}
	fmt.Fprintf(w, "%s_%s_bucket%s %d\n",
		e.namespace, name, e.appendLabel(labels, "le", "+Inf"), snap.Count)
	fmt.Fprintf(w, "%s_%s_sum%s %g\n", e.namespace, name, labels, snap.Sum)
	fmt.Fprintf(w, "%s_%s_count%s %d\n", e.namespace, name, labels, snap.Count)
}

func (e *PrometheusExporter) formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%q", k, labels[k]))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// appendLabel adds one label to an already-formatted label set.
func (e *PrometheusExporter) appendLabel(labels, key, value string) string {
	extra := fmt.Sprintf("%s=%q", key, value)
	if labels == "" {
		return "{" + extra + "}"
	}
	return labels[:len(labels)-1] + "," + extra + "}"
}
