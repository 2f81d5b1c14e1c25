// Package index defines the approximate nearest-neighbor index the benchmark
// drives, and an adapter for github.com/coder/hnsw.
//
// Implementations must accept concurrent Search calls once building has
// finished. Insert, SetSearchBreadth, Save and Load are single-writer
// operations and must not overlap any other call.
package index

import (
	"fmt"
	"strings"

	"github.com/23skdu/hnswbench/internal/errors"
)

// Neighbor is one search result.
type Neighbor struct {
	ID       uint64
	Distance float32
}

// Index is the collaborator surface used by the build driver and the query
// executor.
type Index interface {
	// Insert adds vec under id. It fails if the index is full, if id is
	// already present or if vec has the wrong dimension.
	Insert(vec []float32, id uint64) error
	// Search returns at most k neighbors of vec ordered by ascending distance.
	Search(vec []float32, k int) ([]Neighbor, error)
	// SetSearchBreadth sets the candidate list size used by Search.
	SetSearchBreadth(ef int)
	// Save persists the whole index to path.
	Save(path string) error
	// Len returns the number of indexed vectors.
	Len() int
}

// Metric selects the distance space.
type Metric string

const (
	// MetricL2 is Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricIP is inner-product distance, 1 - <a, b>. Vectors are expected to be
	// normalized, which makes it equivalent to cosine distance.
	MetricIP Metric = "ip"
)

// ParseMetric parses a metric selector.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(s) {
	case "l2", "euclidean":
		return MetricL2, nil
	case "ip", "inner_product", "cosine":
		return MetricIP, nil
	default:
		return "", errors.NewInvalidArgument("parse_metric", fmt.Sprintf("unknown metric %q (want l2 or ip)", s))
	}
}

// NeedsNormalization reports whether vectors must be unit-normalized before
// they are inserted or queried under m.
func (m Metric) NeedsNormalization() bool {
	return m == MetricIP
}
