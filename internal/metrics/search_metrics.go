package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Query Phase Metrics
// =============================================================================

var (
	// QueryLatencySeconds is filled from the latency array after the workers
	// join, never from the hot path
	QueryLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnswbench_query_latency_seconds",
			Help:    "Latency of single index searches",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18),
		},
	)

	// QueriesTotal counts completed queries by execution mode
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnswbench_queries_total",
			Help: "Total number of queries executed",
		},
		[]string{"mode"}, // "concurrent", "sequential"
	)

	// QueryErrorsTotal counts searches rejected by the index
	QueryErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_query_errors_total",
			Help: "Total number of searches rejected by the index",
		},
	)

	// QueryThroughput is the QPS of the most recent run
	QueryThroughput = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_query_qps",
			Help: "Queries per second in the last query run",
		},
	)

	// QueryWorkers is the number of workers in the most recent run
	QueryWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_query_workers",
			Help: "Worker threads used by the last query run",
		},
	)

	// AffinityPinFailuresTotal counts workers that could not be bound to a core
	AffinityPinFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_affinity_pin_failures_total",
			Help: "Worker threads that failed to bind to their CPU core",
		},
	)
)
