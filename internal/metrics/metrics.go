// Package metrics exposes feed ranking instrumentation. A Monitor owns its
// registry so that tests and multiple engines never collide.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mfeed"

type Monitor struct {
	registry *prometheus.Registry

	rankRequests  *prometheus.CounterVec
	rankDuration  prometheus.Histogram
	candidates    prometheus.Histogram
	degraded      *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	breakerState  *prometheus.GaugeVec
	jobRuns       *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
		rankRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rank_requests_total",
			Help:      "Feed ranking requests by outcome.",
		}, []string{"outcome"}),
		rankDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_duration_seconds",
			Help:      "End to end latency of a ranking request.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rank_candidates",
			Help:      "Visible candidates scored per ranking request.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		degraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_signals_total",
			Help:      "Lookups that failed and fell back to a neutral or empty value.",
		}, []string{"signal"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Artifact cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Candidate source breaker state: 0=closed, 1=half-open, 2=open.",
		}, []string{"name"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by result.",
		}, []string{"job", "result"}),
		invalidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "Cache entries removed by mutation events.",
		}, []string{"event"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.rankRequests,
		m.rankDuration,
		m.candidates,
		m.degraded,
		m.cacheLookups,
		m.breakerState,
		m.jobRuns,
		m.invalidations,
	)
	return m
}

func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRank records one ranking request. outcome is ok, empty, cached or invalid.
func (m *Monitor) ObserveRank(outcome string, elapsed time.Duration, candidates int) {
	if m == nil {
		return
	}
	m.rankRequests.WithLabelValues(outcome).Inc()
	m.rankDuration.Observe(elapsed.Seconds())
	if candidates >= 0 {
		m.candidates.Observe(float64(candidates))
	}
}

func (m *Monitor) Degraded(signal string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(signal).Inc()
}

func (m *Monitor) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Monitor) BreakerStateChanged(name string, _ string, to string) {
	if m == nil {
		return
	}
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(name).Set(value)
}

func (m *Monitor) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.jobRuns.WithLabelValues(job, result).Inc()
}

func (m *Monitor) Invalidated(event string, removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.invalidations.WithLabelValues(event).Add(float64(removed))
}
