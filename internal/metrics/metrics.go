package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Dataset Load Metrics
// =============================================================================

var (
	// LoadBytesTotal counts bytes copied into process memory by the loader
	LoadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnswbench_load_bytes_total",
			Help: "Total bytes loaded from vector and identifier files",
		},
		[]string{"mode"}, // "read", "mmap"
	)

	// LoadRecordsTotal counts records loaded, by record kind
	LoadRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnswbench_load_records_total",
			Help: "Total number of records loaded",
		},
		[]string{"kind"}, // "vector", "id"
	)

	// LoadDurationSeconds measures time spent loading a single file
	LoadDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hnswbench_load_duration_seconds",
			Help:    "Time taken to load one binary record file",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"mode"},
	)

	// LoadErrorsTotal counts loader failures by error type
	LoadErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hnswbench_load_errors_total",
			Help: "Total number of loader failures",
		},
		[]string{"type"},
	)

	// QueryCountMismatchTotal counts query loads truncated to the smaller of
	// the vector and identifier counts
	QueryCountMismatchTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_query_count_mismatch_total",
			Help: "Query datasets whose vector and id counts differed",
		},
	)
)

// =============================================================================
// Normalization Metrics
// =============================================================================

var (
	NormalizeVectorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_normalize_vectors_total",
			Help: "Total number of vectors rescaled to unit norm",
		},
	)

	NormalizeDegenerateTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hnswbench_normalize_degenerate_total",
			Help: "Vectors copied unchanged because their norm was below epsilon",
		},
	)

	NormalizeDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hnswbench_normalize_duration_seconds",
			Help:    "Time taken to normalize a dataset",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)
