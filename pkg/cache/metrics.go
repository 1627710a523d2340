package cache

import (
	"github.com/c360/genomegate/metric"
	"github.com/prometheus/client_golang/prometheus"
)

type cacheMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge

	registry *metric.MetricsRegistry
	prefix   string
}

func newCacheMetrics(registry *metric.MetricsRegistry, prefix string) (*cacheMetrics, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "genomegate",
			Subsystem:   "cache",
			Name:        name,
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        help,
		})
	}

	m := &cacheMetrics{
		hits:      counter("hits_total", "Total number of cache hits"),
		misses:    counter("misses_total", "Total number of cache misses"),
		sets:      counter("sets_total", "Total number of cache set operations"),
		evictions: counter("evictions_total", "Total number of cache evictions"),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "genomegate",
			Subsystem:   "cache",
			Name:        "size",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of entries in cache",
		}),
	}

	m.registry, m.prefix = registry, prefix
	var done []string
	for name, c := range m.collectors() {
		if err := registry.Register(prefix, name, c); err != nil {
			for _, n := range done {
				registry.Unregister(prefix, n)
			}
			return nil, err
		}
		done = append(done, name)
	}

	return m, nil
}

func (m *cacheMetrics) recordHit()          { m.hits.Inc() }
func (m *cacheMetrics) recordMiss()         { m.misses.Inc() }
func (m *cacheMetrics) recordSet()          { m.sets.Inc() }
func (m *cacheMetrics) recordEviction()     { m.evictions.Inc() }
func (m *cacheMetrics) updateSize(size int) { m.size.Set(float64(size)) }

func (m *cacheMetrics) collectors() map[string]prometheus.Collector {
	return map[string]prometheus.Collector{
		"cache_hits":      m.hits,
		"cache_misses":    m.misses,
		"cache_sets":      m.sets,
		"cache_evictions": m.evictions,
		"cache_size":      m.size,
	}
}

// unregister releases the collectors so a cache with the same prefix can be
// created again.
func (m *cacheMetrics) unregister() {
	for name := range m.collectors() {
		m.registry.Unregister(m.prefix, name)
	}
}
