package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PeakRSSBytes is the process high-water resident set size
	PeakRSSBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_peak_rss_bytes",
			Help: "Peak resident set size of the process",
		},
	)

	// CurrentRSSBytes is the resident set size sampled at the last phase boundary
	CurrentRSSBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hnswbench_current_rss_bytes",
			Help: "Resident set size sampled at a phase boundary",
		},
		[]string{"phase"},
	)

	// MappedBytes tracks bytes currently memory-mapped by the loader
	MappedBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_mapped_bytes",
			Help: "Bytes currently mapped from dataset files",
		},
	)
)

var (
	// HeapInuseBytes is the Go heap in use at the last sample
	HeapInuseBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_heap_inuse_bytes",
			Help: "Go heap bytes in use at the last sample",
		},
	)

	// PeakHeapInuseBytes is the largest heap-in-use value sampled during a build
	PeakHeapInuseBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hnswbench_peak_heap_inuse_bytes",
			Help: "Largest Go heap in use observed by the sampler",
		},
	)
)
