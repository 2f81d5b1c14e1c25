// Package indextest provides an in-memory index for exercising the build and
// query drivers without a real ANN structure.
package indextest

import (
	"cmp"
	"fmt"
	"os"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/23skdu/hnswbench/internal/index"
)

// Stub is an exact brute-force index that records every call. Search is safe
// for concurrent use.
type Stub struct {
	// InsertErr, when set, is returned by every Insert.
	InsertErr error
	// SearchErr, when non-nil, is consulted before each search; a non-nil
	// return fails that search.
	SearchErr func(vec []float32) error

	mu      sync.RWMutex
	ids     []uint64
	vectors [][]float32
	ef      int
	saved   []string

	searches atomic.Int64
}

var _ index.Index = (*Stub)(nil)

// Insert appends the pair.
func (s *Stub) Insert(vec []float32, id uint64) error {
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, id)
	s.vectors = append(s.vectors, slices.Clone(vec))
	return nil
}

// Search returns the k nearest stored vectors by squared Euclidean distance.
func (s *Stub) Search(vec []float32, k int) ([]index.Neighbor, error) {
	s.searches.Add(1)
	if s.SearchErr != nil {
		if err := s.SearchErr(vec); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]index.Neighbor, len(s.ids))
	for i, v := range s.vectors {
		var d float32
		for j := range min(len(v), len(vec)) {
			diff := v[j] - vec[j]
			d += diff * diff
		}
		out[i] = index.Neighbor{ID: s.ids[i], Distance: d}
	}
	slices.SortStableFunc(out, func(a, b index.Neighbor) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// SetSearchBreadth records ef.
func (s *Stub) SetSearchBreadth(ef int) {
	s.mu.Lock()
	s.ef = ef
	s.mu.Unlock()
}

// Save writes the stored ids as text so callers can see a file appear.
func (s *Stub) Save(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, path)
	return os.WriteFile(path, []byte(fmt.Sprint(s.ids)), 0o644)
}

// Len returns the number of inserted pairs.
func (s *Stub) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// InsertedIDs returns the ids in insertion order.
func (s *Stub) InsertedIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Vector returns the i-th inserted vector.
func (s *Stub) Vector(i int) []float32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectors[i]
}

// SearchBreadth returns the last value passed to SetSearchBreadth.
func (s *Stub) SearchBreadth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ef
}

// Searches returns the number of Search calls.
func (s *Stub) Searches() int64 {
	return s.searches.Load()
}

// SavedPaths returns every path passed to Save.
func (s *Stub) SavedPaths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.saved)
}
