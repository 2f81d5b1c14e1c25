// Package normalize rescales vectors to unit Euclidean norm in parallel.
package normalize

import (
	"fmt"
	"runtime"
	"time"

	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/viterin/vek/vek32"
	"golang.org/x/sync/errgroup"
)

// Epsilon is the smallest norm that is divided by. Vectors at or below it are
// copied unchanged.
const Epsilon = 1e-12

// Vector writes src scaled to unit norm into dst and reports whether it was
// scaled. dst and src must have the same length and may alias.
func Vector(dst, src []float32) bool {
	if len(src) == 0 {
		return false
	}
	norm := vek32.Norm(src)
	if &dst[0] != &src[0] {
		copy(dst, src)
	}
	if !(float64(norm) > Epsilon) {
		return false
	}
	vek32.DivNumber_Inplace(dst, norm)
	return true
}

// Normalize returns a new buffer holding every dim-wide vector of vectors
// scaled to unit norm. The input is not modified. Work is split into
// workers contiguous ranges of whole vectors; workers <= 0 uses GOMAXPROCS.
func Normalize(vectors []float32, dim, workers int) ([]float32, error) {
	if dim <= 0 {
		return nil, errors.NewInvalidArgument("normalize", fmt.Sprintf("dimension must be positive, got %d", dim))
	}
	if len(vectors)%dim != 0 {
		return nil, errors.NewInvalidArgument("normalize",
			fmt.Sprintf("%d components do not form whole vectors of dimension %d", len(vectors), dim))
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	n := len(vectors) / dim
	out := make([]float32, len(vectors))
	if n == 0 {
		return out, nil
	}
	workers = min(workers, n)
	chunk := (n + workers - 1) / workers

	degenerate := make([]int, workers)
	var g errgroup.Group
	for w := range workers {
		lo := w * chunk
		hi := min(lo+chunk, n)
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				s := i * dim
				if !Vector(out[s:s+dim], vectors[s:s+dim]) {
					degenerate[w]++
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var skipped int
	for _, d := range degenerate {
		skipped += d
	}
	metrics.NormalizeVectorsTotal.Add(float64(n))
	metrics.NormalizeDegenerateTotal.Add(float64(skipped))
	metrics.NormalizeDurationSeconds.Observe(time.Since(start).Seconds())
	return out, nil
}
