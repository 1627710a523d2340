// Package metric exposes genomegate's Prometheus metrics.
//
// A single MetricsRegistry is created at startup. It owns a private
// prometheus.Registry with the Go runtime and process collectors, the gateway
// metrics in Metrics (requests, resolver timings, error codes, loader batch
// sizes, upstream calls, result cache operations) and any component metrics
// registered later through Register.
//
//	registry := metric.NewMetricsRegistry()
//	mux.Handle("/metrics", registry.Handler())
//
// Component metrics are keyed "service.metric"; registering the same key
// twice is an invalid-class error.
package metric
