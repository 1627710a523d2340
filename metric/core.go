package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "genomegate"

// Metrics contains the gateway-wide metrics. Component-specific metrics
// (cache statistics) register themselves through MetricsRegistry.
type Metrics struct {
	// HTTP boundary
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RequestsInFlight prometheus.Gauge

	// Resolution
	ResolverDuration *prometheus.HistogramVec
	QueryErrors      *prometheus.CounterVec
	LoaderBatchSize  *prometheus.HistogramVec

	// Backends
	UpstreamCalls    *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	ResultCacheOps   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of query requests by outcome",
			},
			[]string{"status"},
		),

		RequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Query request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),

		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Number of query requests currently being served",
			},
		),

		ResolverDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "duration_seconds",
				Help:      "Root field resolution duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"field"},
		),

		QueryErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "resolver",
				Name:      "errors_total",
				Help:      "Errors reported in query responses by code",
			},
			[]string{"code"},
		),

		LoaderBatchSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "loader",
				Name:      "batch_size",
				Help:      "Number of keys per batch loader flush",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
			[]string{"loader"},
		),

		UpstreamCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "calls_total",
				Help:      "Calls to backing services by outcome",
			},
			[]string{"service", "method", "outcome"},
		),

		UpstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "upstream",
				Name:      "duration_seconds",
				Help:      "Backing service call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"service", "method"},
		),

		ResultCacheOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "result_cache",
				Name:      "operations_total",
				Help:      "Result cache lookups and writes by result",
			},
			[]string{"backend", "result"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.RequestsTotal,
		c.RequestDuration,
		c.RequestsInFlight,
		c.ResolverDuration,
		c.QueryErrors,
		c.LoaderBatchSize,
		c.UpstreamCalls,
		c.UpstreamDuration,
		c.ResultCacheOps,
	}
}

// RecordRequest records a finished query request
func (c *Metrics) RecordRequest(status string, duration time.Duration) {
	c.RequestsTotal.WithLabelValues(status).Inc()
	c.RequestDuration.Observe(duration.Seconds())
}

// RecordResolver records a root field resolution
func (c *Metrics) RecordResolver(field string, duration time.Duration) {
	c.ResolverDuration.WithLabelValues(field).Observe(duration.Seconds())
}

// RecordQueryError counts an error reported to the client
func (c *Metrics) RecordQueryError(code string) {
	c.QueryErrors.WithLabelValues(code).Inc()
}

// RecordBatch records the key count of a loader flush
func (c *Metrics) RecordBatch(loader string, size int) {
	c.LoaderBatchSize.WithLabelValues(loader).Observe(float64(size))
}

// RecordUpstream records a call to a backing service
func (c *Metrics) RecordUpstream(service, method string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.UpstreamCalls.WithLabelValues(service, method, outcome).Inc()
	c.UpstreamDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordCacheOp counts a result cache operation (hit, miss, set, error)
func (c *Metrics) RecordCacheOp(backend, result string) {
	c.ResultCacheOps.WithLabelValues(backend, result).Inc()
}
