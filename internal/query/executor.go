// Package query runs a fixed query workload against a built index and
// measures per-query latency.
//
// Work is handed out through a single atomic cursor: every worker claims the
// next query index with one fetch-and-add and writes its latency and the
// query's id into slot i of pre-sized output slices. No two workers ever touch
// the same slot, so the hot path takes no locks.
package query

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/23skdu/hnswbench/internal/affinity"
	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultProgressEvery is the sequential runner's progress cadence.
const DefaultProgressEvery = 10_000

// Executor drives queries against an index. The index must support
// concurrent Search calls and must not be modified while a run is active.
type Executor struct {
	idx           index.Index
	logger        zerolog.Logger
	pinner        affinity.Pinner
	recordClaims  bool
	progressEvery int
}

// Option configures an Executor.
type Option func(*Executor)

// WithPinner sets the affinity capability used by workers. A nil pinner
// disables pinning.
func WithPinner(p affinity.Pinner) Option {
	return func(e *Executor) {
		if p == nil {
			p = affinity.Noop{}
		}
		e.pinner = p
	}
}

// WithClaimRecording makes every worker keep the list of query indices it
// claimed, for VerifyCoverage. It costs one append per query.
func WithClaimRecording(on bool) Option {
	return func(e *Executor) {
		e.recordClaims = on
	}
}

// WithProgressEvery sets the sequential runner's progress cadence.
func WithProgressEvery(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.progressEvery = n
		}
	}
}

// NewExecutor returns an executor for idx. Workers pin themselves with the
// platform's default pinner unless WithPinner says otherwise.
func NewExecutor(idx index.Index, logger zerolog.Logger, opts ...Option) *Executor {
	e := &Executor{
		idx:           idx,
		logger:        logger,
		pinner:        affinity.Default(),
		progressEvery: DefaultProgressEvery,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// worker is the private, cache-line padded state of one worker goroutine.
type worker struct {
	queries int
	claimed []int
	err     error
	_       [64]byte
}

// Run executes every query in qs with threads workers, asking for k
// neighbors each. ef, when positive, is applied to the index before the first
// query. Run blocks until every worker has exited.
//
// A rejected query stops the worker that issued it; the others drain the
// remaining work and the first error (by worker index) is returned together
// with the partial result.
func (e *Executor) Run(qs *dataset.Dataset, k, ef, threads int) (*Result, error) {
	if err := validate(k, threads); err != nil {
		return nil, err
	}
	n := qs.Len()
	if ef > 0 {
		e.idx.SetSearchBreadth(ef)
	}

	res := newResult(n, threads)
	workers := make([]worker, threads)
	var cursor atomic.Int64
	var wg sync.WaitGroup

	metrics.QueryWorkers.Set(float64(threads))
	start := time.Now()
	for tid := range threads {
		wg.Add(1)
		go func(tid int, w *worker) {
			defer wg.Done()
			e.pin(tid)
			for {
				i := int(cursor.Add(1) - 1)
				if i >= n {
					return
				}
				q := qs.Vector(i)
				t0 := time.Now()
				_, err := e.idx.Search(q, k)
				lat := time.Since(t0)
				if err != nil {
					w.err = errors.WrapIndex(err, "search", "index rejected query").
						WithContext("query", i).
						WithContext("worker", tid)
					return
				}
				res.Latencies[i] = lat
				res.ProcessedIDs[i] = qs.IDs[i]
				res.executed[i] = true
				w.queries++
				if e.recordClaims {
					w.claimed = append(w.claimed, i)
				}
			}
		}(tid, &workers[tid])
	}
	wg.Wait()
	res.Elapsed = time.Since(start)
	metrics.QueryWorkers.Set(0)

	return e.finish(res, workers, "concurrent")
}

// RunSequential executes every query on the calling goroutine, reporting
// progress as it goes. The result has a single thread entry.
func (e *Executor) RunSequential(qs *dataset.Dataset, k, ef int) (*Result, error) {
	if err := validate(k, 1); err != nil {
		return nil, err
	}
	n := qs.Len()
	if ef > 0 {
		e.idx.SetSearchBreadth(ef)
	}

	res := newResult(n, 1)
	workers := make([]worker, 1)
	w := &workers[0]
	start := time.Now()
	for i := 0; i < n; i++ {
		t0 := time.Now()
		_, err := e.idx.Search(qs.Vector(i), k)
		lat := time.Since(t0)
		if err != nil {
			w.err = errors.WrapIndex(err, "search", "index rejected query").WithContext("query", i)
			break
		}
		res.Latencies[i] = lat
		res.ProcessedIDs[i] = qs.IDs[i]
		res.executed[i] = true
		w.queries++
		if e.recordClaims {
			w.claimed = append(w.claimed, i)
		}
		if done := i + 1; done%e.progressEvery == 0 || done == n {
			e.logger.Info().
				Int("completed", done).
				Int("total", n).
				Str("percent", fmt.Sprintf("%.1f", 100*float64(done)/float64(n))).
				Msg("query progress")
		}
	}
	res.Elapsed = time.Since(start)

	return e.finish(res, workers, "sequential")
}

func (e *Executor) pin(tid int) {
	if !e.pinner.Supported() {
		return
	}
	core := affinity.CoreFor(tid)
	if err := e.pinner.Pin(core); err != nil {
		metrics.AffinityPinFailuresTotal.Inc()
		e.logger.Debug().Err(err).Int("worker", tid).Int("core", core).Msg("cpu pin failed")
	}
}

func (e *Executor) finish(res *Result, workers []worker, mode string) (*Result, error) {
	var errs []error
	for tid := range workers {
		w := &workers[tid]
		res.Threads[tid] = ThreadStat{Queries: w.queries, Claimed: w.claimed, Err: w.err}
		res.Completed += w.queries
		if w.err != nil {
			errs = append(errs, w.err)
		}
	}

	for i, ran := range res.executed {
		if ran {
			metrics.QueryLatencySeconds.Observe(res.Latencies[i].Seconds())
		}
	}
	metrics.QueriesTotal.WithLabelValues(mode).Add(float64(res.Completed))
	metrics.QueryThroughput.Set(res.QPS())

	if len(errs) > 0 {
		metrics.QueryErrorsTotal.Add(float64(len(errs)))
		e.logger.Error().
			Err(errs[0]).
			Int("failed_workers", len(errs)).
			Int("completed", res.Completed).
			Int("total", len(res.Latencies)).
			Msg("query run aborted")
		return res, errs[0]
	}
	return res, nil
}

func validate(k, threads int) error {
	switch {
	case k < 1:
		return errors.NewInvalidArgument("query", fmt.Sprintf("k must be positive, got %d", k))
	case threads < 1:
		return errors.NewInvalidArgument("query", fmt.Sprintf("thread count must be positive, got %d", threads))
	}
	return nil
}

// DefaultThreads returns the number of workers used when none is configured.
func DefaultThreads() int {
	return runtime.NumCPU()
}
