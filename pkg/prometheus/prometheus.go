package prometheus

import (
	"net/http"

	"github.com/kizuna-social/backend/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHandler exposes the application metrics along with the runtime ones. Extra collectors, e.g.
// the database pool stats, are registered on the same registry.
func NewHandler(extra ...prometheus.Collector) http.Handler {
	registry := prometheus.NewRegistry()

	// default collectors
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	for _, counter := range common.PromCounters {
		registry.MustRegister(counter)
	}

	for _, histogram := range common.PromHistograms {
		registry.MustRegister(histogram)
	}

	registry.MustRegister(extra...)

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
