package metric

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shardkv"

// Operation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultMiss     = "miss"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Registry holds all application metrics on a private Prometheus registry.
type Registry struct {
	registry *prometheus.Registry

	OperationsTotal *prometheus.CounterVec
	BulkKeysTotal   *prometheus.CounterVec

	SnapshotDuration *prometheus.HistogramVec
	SnapshotBytes    *prometheus.GaugeVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RESPCommandsTotal *prometheus.CounterVec
	RESPConnections   prometheus.Gauge
}

// NewRegistry creates a registry with the Go and process collectors and
// every shardkv metric registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Registry{
		registry: reg,
		OperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Store operations by name and result.",
		}, []string{"op", "result"}),
		BulkKeysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bulk_keys_total",
			Help:      "Keys processed by bulk operations by name and result.",
		}, []string{"op", "result"}),
		SnapshotDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "snapshot_duration_seconds",
			Help:      "Time spent dumping or loading the store.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		}, []string{"op"}),
		SnapshotBytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_bytes",
			Help:      "Size of the last dump written or loaded.",
		}, []string{"op"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RESPCommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resp_commands_total",
			Help:      "RESP commands by name and result.",
		}, []string{"command", "result"}),
		RESPConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resp_connections",
			Help:      "Open RESP client connections.",
		}),
	}

	reg.MustRegister(
		r.OperationsTotal,
		r.BulkKeysTotal,
		r.SnapshotDuration,
		r.SnapshotBytes,
		r.HTTPRequestsTotal,
		r.HTTPRequestDuration,
		r.RESPCommandsTotal,
		r.RESPConnections,
	)

	return r
}

var (
	globalOnce sync.Once
	global     *Registry
)

// Global returns a process-wide registry, created on first use.
func Global() *Registry {
	globalOnce.Do(func() {
		global = NewRegistry()
	})
	return global
}

// Handler returns the /metrics handler of the global registry.
func Handler() http.Handler {
	return Global().Handler()
}

// Handler returns an HTTP handler exposing this registry.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		Registry: r.registry,
	})
}

// MustRegister adds extra collectors, such as a StoreCollector.
func (r *Registry) MustRegister(cs ...prometheus.Collector) {
	r.registry.MustRegister(cs...)
}

// Gatherer exposes the underlying registry for tests and tooling.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// RecordOperation counts one store operation.
func (r *Registry) RecordOperation(op, result string) {
	if r == nil {
		return
	}
	r.OperationsTotal.WithLabelValues(op, result).Inc()
}

// RecordBulkKeys counts n keys of a bulk operation with the given result.
func (r *Registry) RecordBulkKeys(op, result string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.BulkKeysTotal.WithLabelValues(op, result).Add(float64(n))
}

// ObserveSnapshot records the duration and size of a dump or load.
func (r *Registry) ObserveSnapshot(op string, d time.Duration, size int64) {
	if r == nil {
		return
	}
	r.SnapshotDuration.WithLabelValues(op).Observe(d.Seconds())
	r.SnapshotBytes.WithLabelValues(op).Set(float64(size))
}

// RecordHTTPRequest counts one HTTP request and observes its latency.
func (r *Registry) RecordHTTPRequest(method, route, status string, d time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordRESPCommand counts one RESP command.
func (r *Registry) RecordRESPCommand(command, result string) {
	if r == nil {
		return
	}
	r.RESPCommandsTotal.WithLabelValues(command, result).Inc()
}

// AddRESPConnections moves the open RESP connection gauge by delta.
func (r *Registry) AddRESPConnections(delta int) {
	if r == nil {
		return
	}
	r.RESPConnections.Add(float64(delta))
}
