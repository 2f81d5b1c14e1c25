package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Bulk Insertion Metrics
// =============================================================================

var (
	// BuildInsertedTotal counts vectors inserted into the index
	BuildInsertedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_build_inserted_total",
			Help: "Total number of vectors inserted into the index",
		},
	)

	// BuildInsertErrorsTotal counts inserts rejected by the index
	BuildInsertErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_build_insert_errors_total",
			Help: "Total number of inserts rejected by the index",
		},
	)

	// BuildDurationSeconds measures a complete bulk insertion
	BuildDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnswbench_build_duration_seconds",
			Help:    "Time taken to insert a full dataset",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
		},
	)

	// BuildThroughput is the insertion rate of the most recent build
	BuildThroughput = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_build_throughput_vectors_per_second",
			Help: "Vectors inserted per second in the last build",
		},
	)

	// BuildProgressRatio tracks the completed fraction of the running build
	BuildProgressRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_build_progress_ratio",
			Help: "Fraction of the dataset inserted so far",
		},
	)
)
