package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collection and search Prometheus metrics.
var (
	CollectionChunks = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_chunks",
			Help:      "Chunks served by the active index of each collection",
		},
		[]string{"domain"},
	)

	CollectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collection_state",
			Help:      "1 for the current lifecycle state of each collection, 0 otherwise",
		},
		[]string{"domain", "state"},
	)

	CollectionRebuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_rebuilds_total",
			Help:      "Collection rebuilds by outcome",
		},
		[]string{"domain", "status"},
	)

	CollectionRebuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "collection_rebuild_duration_seconds",
			Help:      "Collection rebuild duration in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"domain"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Knowledge searches by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Knowledge search duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"mode"},
	)

	SearchDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_degraded_total",
			Help:      "Searches that fell back to a cheaper strategy",
		},
		[]string{"domain", "reason"},
	)
)

var registerKnowledgeOnce sync.Once

// RegisterKnowledgeMetrics registers collection and search metrics. Safe to call repeatedly.
func RegisterKnowledgeMetrics() {
	registerKnowledgeOnce.Do(func() {
		prometheus.MustRegister(
			CollectionChunks,
			CollectionState,
			CollectionRebuildsTotal,
			CollectionRebuildDuration,
			SearchRequestsTotal,
			SearchDuration,
			SearchDegradedTotal,
		)
	})
}

// SetCollectionState flips the state gauge of domain to state.
func SetCollectionState(domain, state string, all []string) {
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		CollectionState.WithLabelValues(domain, s).Set(v)
	}
}
