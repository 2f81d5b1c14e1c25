// Package build feeds a loaded dataset into an index, one record at a time,
// in dataset order.
package build

import (
	"fmt"
	"time"

	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/23skdu/hnswbench/internal/simd"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// PrefetchDistance is how many records ahead of the current insert the
	// driver prefetches.
	PrefetchDistance = 10
	// DefaultProgressEvery is the default number of inserts between progress
	// reports.
	DefaultProgressEvery = 50_000
)

// ProgressFunc observes build progress. It is called every ProgressEvery
// inserts and once more on completion, from the inserting goroutine.
type ProgressFunc func(inserted, total int)

// Stats summarizes a completed build.
type Stats struct {
	Inserted   int
	Elapsed    time.Duration
	Throughput float64 // vectors per second
}

// Driver inserts datasets into a single index. The index must not be used by
// anyone else while Run is in progress.
type Driver struct {
	idx           index.Index
	logger        zerolog.Logger
	progressEvery int
	onProgress    ProgressFunc
	logLimiter    *rate.Sometimes
}

// Option configures a Driver.
type Option func(*Driver)

// WithProgressEvery sets the report cadence. Values below 1 keep the default.
func WithProgressEvery(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.progressEvery = n
		}
	}
}

// WithProgress registers a progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(d *Driver) {
		d.onProgress = fn
	}
}

// NewDriver returns a driver for idx.
func NewDriver(idx index.Index, logger zerolog.Logger, opts ...Option) *Driver {
	d := &Driver{
		idx:           idx,
		logger:        logger,
		progressEvery: DefaultProgressEvery,
		// Progress ticks are always observed; the log line is throttled.
		logLimiter: &rate.Sometimes{First: 1, Interval: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run inserts every record of ds. The first rejected insert aborts the build.
func (d *Driver) Run(ds *dataset.Dataset) (Stats, error) {
	n := ds.Len()
	dim := ds.Dim
	if n > 0 && len(ds.Vectors) != n*dim {
		return Stats{}, errors.NewSizeMismatch("build", "",
			fmt.Sprintf("%d components for %d records of dimension %d", len(ds.Vectors), n, dim))
	}

	start := time.Now()
	metrics.BuildProgressRatio.Set(0)
	for i := 0; i < n; i++ {
		if ahead := i + PrefetchDistance; ahead < n {
			simd.PrefetchFloat32(ds.Vectors[ahead*dim : (ahead+1)*dim])
			simd.PrefetchUint64(&ds.IDs[ahead])
		}

		if err := d.idx.Insert(ds.Vector(i), ds.IDs[i]); err != nil {
			metrics.BuildInsertErrorsTotal.Inc()
			return Stats{Inserted: i, Elapsed: time.Since(start)},
				errors.WrapIndex(err, "insert", "index rejected record").
					WithContext("position", i).
					WithContext("id", ds.IDs[i])
		}
		metrics.BuildInsertedTotal.Inc()

		if inserted := i + 1; inserted%d.progressEvery == 0 && inserted < n {
			d.report(inserted, n, start, false)
		}
	}

	elapsed := time.Since(start)
	stats := Stats{Inserted: n, Elapsed: elapsed, Throughput: throughput(n, elapsed)}
	d.report(n, n, start, true)

	metrics.BuildDurationSeconds.Observe(elapsed.Seconds())
	metrics.BuildThroughput.Set(stats.Throughput)
	return stats, nil
}

func (d *Driver) report(inserted, total int, start time.Time, final bool) {
	ratio := 1.0
	if total > 0 {
		ratio = float64(inserted) / float64(total)
	}
	metrics.BuildProgressRatio.Set(ratio)
	if d.onProgress != nil {
		d.onProgress(inserted, total)
	}

	logLine := func() {
		d.logger.Info().
			Int("inserted", inserted).
			Int("total", total).
			Str("percent", fmt.Sprintf("%.1f", ratio*100)).
			Float64("vectors_per_sec", throughput(inserted, time.Since(start))).
			Msg("build progress")
	}
	if final {
		logLine()
		return
	}
	d.logLimiter.Do(logLine)
}

func throughput(n int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
