package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scbrown/semmatch/internal/relcache"
)

// metrics is a per-server registry so several servers can coexist in one
// process.
type metrics struct {
	registry  *prometheus.Registry
	jobs      *prometheus.CounterVec
	requests  *prometheus.HistogramVec
	processed prometheus.Counter
}

func newMetrics(cacheStats func() relcache.Stats) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "semmatch_jobs_total",
				Help: "Background jobs finished, by kind and final status.",
			},
			[]string{"kind", "status"},
		),
		requests: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "semmatch_http_request_duration_seconds",
				Help:    "API request latency by route and status code.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "code"},
		),
		processed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "semmatch_job_attributes_processed_total",
				Help: "Attributes processed by background jobs.",
			},
		),
	}

	cache := func(name, help string, get func(relcache.Stats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(
			prometheus.CounterOpts{Name: name, Help: help},
			func() float64 { return float64(get(cacheStats())) },
		)
	}
	m.registry.MustRegister(
		m.jobs,
		m.requests,
		m.processed,
		cache("semmatch_relatedness_cache_hits_total", "Relatedness cache hits.",
			func(s relcache.Stats) int64 { return s.Hits }),
		cache("semmatch_relatedness_cache_misses_total", "Relatedness cache misses.",
			func(s relcache.Stats) int64 { return s.Misses }),
		cache("semmatch_relatedness_cache_evictions_total", "Relatedness cache evictions.",
			func(s relcache.Stats) int64 { return s.Evictions }),
		cache("semmatch_relatedness_cache_failures_total", "Relatedness computations that failed.",
			func(s relcache.Stats) int64 { return s.Failures }),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: "semmatch_relatedness_cache_entries", Help: "Entries held by the relatedness cache."},
			func() float64 { return float64(cacheStats().Size) },
		),
		collectors.NewGoCollector(),
	)
	return m
}

// instrument records the latency of h under route.
func (m *metrics) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return promhttp.InstrumentHandlerDuration(
		m.requests.MustCurryWith(prometheus.Labels{"route": route}), h)
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
