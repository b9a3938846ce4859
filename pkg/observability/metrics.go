package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil *Collector is
// valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Business metrics
	SessionsCreated  prometheus.Counter
	SessionsDeleted  prometheus.Counter
	DatasetsCreated  *prometheus.CounterVec
	DatasetsDeleted  *prometheus.CounterVec
	RowsInserted     prometheus.Counter
	OrphanedDatasets *prometheus.CounterVec
	Exports          *prometheus.CounterVec

	// Backing store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	BreakerState    *prometheus.GaugeVec
}

// NewCollector creates a new metrics collector with the given namespace. Each
// collector owns its registry so tests can build as many as they like.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of sessions created",
		}),
		SessionsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_deleted_total",
			Help:      "Total number of sessions deleted",
		}),
		DatasetsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datasets_created_total",
				Help:      "Total number of datasets created",
			},
			[]string{"kind"},
		),
		DatasetsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "datasets_deleted_total",
				Help:      "Total number of datasets deleted",
			},
			[]string{"kind"},
		),
		RowsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_inserted_total",
			Help:      "Total number of tabular rows inserted",
		}),
		OrphanedDatasets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orphaned_resources_total",
				Help:      "Physical resources left behind after a failed release",
			},
			[]string{"kind"},
		),
		Exports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exports_total",
				Help:      "Total number of session exports",
			},
			[]string{"status"},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Total number of backing store operations",
			},
			[]string{"store", "operation", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Backing store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"store", "operation"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.SessionsCreated,
		c.SessionsDeleted,
		c.DatasetsCreated,
		c.DatasetsDeleted,
		c.RowsInserted,
		c.OrphanedDatasets,
		c.Exports,
		c.StoreOperations,
		c.StoreDuration,
		c.BreakerState,
	)
	return c
}

// RecordHTTP records one served request
func (c *Collector) RecordHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordStoreOperation records one call into a backing store
func (c *Collector) RecordStoreOperation(store, operation string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.StoreOperations.WithLabelValues(store, operation, status).Inc()
	c.StoreDuration.WithLabelValues(store, operation).Observe(d.Seconds())
}

// SessionCreated counts a new session
func (c *Collector) SessionCreated() {
	if c == nil {
		return
	}
	c.SessionsCreated.Inc()
}

// SessionDeleted counts a deleted session
func (c *Collector) SessionDeleted() {
	if c == nil {
		return
	}
	c.SessionsDeleted.Inc()
}

// DatasetCreated counts a new dataset of kind
func (c *Collector) DatasetCreated(kind string) {
	if c == nil {
		return
	}
	c.DatasetsCreated.WithLabelValues(kind).Inc()
}

// DatasetDeleted counts a deleted dataset of kind
func (c *Collector) DatasetDeleted(kind string) {
	if c == nil {
		return
	}
	c.DatasetsDeleted.WithLabelValues(kind).Inc()
}

// RowsAdded counts inserted rows
func (c *Collector) RowsAdded(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RowsInserted.Add(float64(n))
}

// Orphaned counts a physical resource that could not be released
func (c *Collector) Orphaned(kind string) {
	if c == nil {
		return
	}
	c.OrphanedDatasets.WithLabelValues(kind).Inc()
}

// ExportFinished counts an export by outcome ("complete" or "partial")
func (c *Collector) ExportFinished(status string) {
	if c == nil {
		return
	}
	c.Exports.WithLabelValues(status).Inc()
}

// SetBreakerState publishes a circuit breaker's state
func (c *Collector) SetBreakerState(name string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(name).Set(state)
}

// Handler serves the collector's registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
