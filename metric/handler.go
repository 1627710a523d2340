package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the registry in Prometheus text or OpenMetrics format.
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(
		r.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}
