package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/c360/genomegate/errors"
)

// MetricsRegistry owns the gateway's private Prometheus registry.
type MetricsRegistry struct {
	Metrics *Metrics

	prom  *prometheus.Registry
	mu    sync.Mutex
	owned map[string]prometheus.Collector
}

// NewMetricsRegistry creates a registry holding the gateway metrics and the
// Go runtime and process collectors.
func NewMetricsRegistry() *MetricsRegistry {
	r := &MetricsRegistry{
		Metrics: NewMetrics(),
		prom:    prometheus.NewRegistry(),
		owned:   make(map[string]prometheus.Collector),
	}
	r.prom.MustRegister(r.Metrics.collectors()...)
	r.prom.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying registry.
func (r *MetricsRegistry) PrometheusRegistry() *prometheus.Registry { return r.prom }

// CoreMetrics returns the gateway metrics.
func (r *MetricsRegistry) CoreMetrics() *Metrics { return r.Metrics }

// Register adds a component collector under "owner.name".
func (r *MetricsRegistry) Register(owner, name string, c prometheus.Collector) error {
	key := owner + "." + name

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.owned[key]; taken {
		return errors.WrapInvalid(fmt.Errorf("metric %s already registered", key),
			"MetricsRegistry", "Register", "duplicate registration")
	}
	if err := r.prom.Register(c); err != nil {
		var conflict prometheus.AlreadyRegisteredError
		if stderrors.As(err, &conflict) {
			return errors.WrapInvalid(err, "MetricsRegistry", "Register", "prometheus conflict for "+key)
		}
		return errors.WrapFatal(err, "MetricsRegistry", "Register", "register with prometheus")
	}
	r.owned[key] = c
	return nil
}

// Unregister removes a collector added with Register. Closing a result
// cache calls it so the cache can be rebuilt with the same name.
func (r *MetricsRegistry) Unregister(owner, name string) bool {
	key := owner + "." + name

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.owned[key]
	if !ok || !r.prom.Unregister(c) {
		return false
	}
	delete(r.owned, key)
	return true
}
