package observability

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the Prometheus surface for the loading kernel. One instance
// is created at bootstrap and shared by the pipelines and the daemon.
type Metrics struct {
	registry *prom.Registry

	fetchesTotal  *prom.CounterVec
	cacheHits     *prom.CounterVec
	cacheMisses   *prom.CounterVec
	cancellations *prom.CounterVec
	duration      *prom.HistogramVec
}

// NewMetrics creates and registers the kernel metrics along with the
// standard Go and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prom.NewRegistry(),
		fetchesTotal: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadkit", Name: "fetches_total",
			Help: "Fetch pipeline runs by entity and outcome",
		}, []string{"entity", "outcome"}),
		cacheHits: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadkit", Name: "cache_hits_total",
			Help: "Pipeline runs answered from the local store",
		}, []string{"entity"}),
		cacheMisses: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadkit", Name: "cache_misses_total",
			Help: "Pipeline runs that went to the remote source",
		}, []string{"entity"}),
		cancellations: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "loadkit", Name: "cancellations_total",
			Help: "Pipeline runs aborted by the caller",
		}, []string{"entity"}),
		duration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "loadkit", Name: "pipeline_duration_seconds",
			Help:    "End-to-end pipeline duration by entity",
			Buckets: prom.DefBuckets,
		}, []string{"entity"}),
	}

	m.registry.MustRegister(m.fetchesTotal, m.cacheHits, m.cacheMisses, m.cancellations, m.duration)
	m.registry.MustRegister(promcollect.NewGoCollector(), promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}))
	return m
}

// RecordFetch records one completed pipeline run.
func (m *Metrics) RecordFetch(entity, outcome string, elapsed time.Duration) {
	m.fetchesTotal.WithLabelValues(entity, outcome).Inc()
	m.duration.WithLabelValues(entity).Observe(elapsed.Seconds())
}

// RecordCacheHit records a run served from the local store.
func (m *Metrics) RecordCacheHit(entity string) {
	m.cacheHits.WithLabelValues(entity).Inc()
}

// RecordCacheMiss records a run that had to fetch remotely.
func (m *Metrics) RecordCacheMiss(entity string) {
	m.cacheMisses.WithLabelValues(entity).Inc()
}

// RecordCancellation records a run aborted by its caller.
func (m *Metrics) RecordCancellation(entity string) {
	m.cancellations.WithLabelValues(entity).Inc()
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
