// Package metrics exposes prometheus counters for the delivery cache and
// version registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by the cache and content layers.
type Metrics struct {
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	CacheDegraded   *prometheus.CounterVec
	ProducerRuns    prometheus.Counter
	VersionBumps    *prometheus.CounterVec
	SearchRequests  prometheus.Counter
	ProducerLatency prometheus.Histogram

	registry *prometheus.Registry
}

// New creates collectors under namespace and registers them on a private
// registry so tests can build as many instances as they like.
func New(namespace string) *Metrics {
	m := &Metrics{
		// Delivery reads are anonymous, so hit/miss counters carry no
		// caller-controlled labels.
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Delivery payloads served from cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Delivery payloads computed from the content store",
		}),
		CacheDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_degraded_total",
			Help:      "Cache backend failures that fell back to direct store reads",
		}, []string{"op"}),
		ProducerRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_producer_runs_total",
			Help:      "Number of times a delivery producer queried the store",
		}),
		VersionBumps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_bumps_total",
			Help:      "Locale version increments triggered by writes",
		}, []string{"locale"}),
		SearchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Search queries executed against the store",
		}),
		ProducerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cache_producer_latency_seconds",
			Help:      "Store query latency on cache miss",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.CacheHits,
		m.CacheMisses,
		m.CacheDegraded,
		m.ProducerRuns,
		m.VersionBumps,
		m.SearchRequests,
		m.ProducerLatency,
	)
	return m
}

// Registry returns the gatherer backing the /-/metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
