package idp

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "dynconfig"

// Metrics of the identity provider cache and resolver.
// A nil *Metrics records nothing.
type Metrics struct {
	CacheLookupsTotal        *prometheus.CounterVec
	StoreFetchesTotal        *prometheus.CounterVec
	StoreFetchLatencySeconds prometheus.Histogram
	ResolutionsTotal         *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg, if not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idp",
				Name:      "cache_lookups_total",
				Help:      "Total number of identity provider cache lookups, labeled by result (hit, miss, stale).",
			},
			[]string{"result"},
		),
		StoreFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idp",
				Name:      "store_fetches_total",
				Help:      "Total number of identity provider store reads, labeled by outcome.",
			},
			[]string{"outcome"},
		),
		StoreFetchLatencySeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "idp",
				Name:      "store_fetch_latency_seconds",
				Help:      "Latency of identity provider store reads (seconds).",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "idp",
				Name:      "resolutions_total",
				Help:      "Total number of scheme to handler options resolutions, labeled by outcome.",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(
			m.CacheLookupsTotal,
			m.StoreFetchesTotal,
			m.StoreFetchLatencySeconds,
			m.ResolutionsTotal,
		)
	}
	return m
}

func (m *Metrics) cacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookupsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) storeFetch(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StoreFetchesTotal.WithLabelValues(outcome).Inc()
	m.StoreFetchLatencySeconds.Observe(d.Seconds())
}

func (m *Metrics) resolution(outcome string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(outcome).Inc()
}
