package query

import (
	"errors"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
)

var errClaimsNotRecorded = errors.New("claims were not recorded; enable WithClaimRecording")

// ThreadStat is one worker's share of a run.
type ThreadStat struct {
	Queries int
	// Claimed lists the query indices the worker claimed, in claim order.
	// Only populated when claim recording is enabled.
	Claimed []int
	Err     error
}

// Result holds the measurements of one run. Latencies and ProcessedIDs are
// indexed by query position; a position whose query failed or never ran holds
// the zero value.
type Result struct {
	Latencies    []time.Duration
	ProcessedIDs []uint64
	Threads      []ThreadStat
	Elapsed      time.Duration
	Completed    int

	// executed marks positions whose search returned; ids and latencies may
	// legitimately be zero.
	executed []bool
}

func newResult(n, threads int) *Result {
	return &Result{
		Latencies:    make([]time.Duration, n),
		ProcessedIDs: make([]uint64, n),
		Threads:      make([]ThreadStat, threads),
		executed:     make([]bool, n),
	}
}

// Queries returns the size of the workload.
func (r *Result) Queries() int {
	return len(r.Latencies)
}

// QPS returns completed queries per second of wall time.
func (r *Result) QPS() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Completed) / r.Elapsed.Seconds()
}

// LatenciesMs returns the latencies in milliseconds, in query order.
func (r *Result) LatenciesMs() []float64 {
	out := make([]float64, len(r.Latencies))
	for i, d := range r.Latencies {
		out[i] = float64(d) / float64(time.Millisecond)
	}
	return out
}

// ThreadShare returns the percentage of completed queries run by worker tid.
func (r *Result) ThreadShare(tid int) float64 {
	if r.Completed == 0 {
		return 0
	}
	return 100 * float64(r.Threads[tid].Queries) / float64(r.Completed)
}

// VerifyCoverage checks that the recorded claims cover every query index
// exactly once and agree with the per-thread counters.
func (r *Result) VerifyCoverage() error {
	n := len(r.Latencies)
	seen := roaring.New()
	var claims, counted int
	for tid, ts := range r.Threads {
		if ts.Claimed == nil && ts.Queries > 0 {
			return errClaimsNotRecorded
		}
		if len(ts.Claimed) != ts.Queries {
			return fmt.Errorf("worker %d claimed %d queries but counted %d", tid, len(ts.Claimed), ts.Queries)
		}
		for _, i := range ts.Claimed {
			if i < 0 || i >= n {
				return fmt.Errorf("worker %d claimed out-of-range query %d", tid, i)
			}
			if !seen.CheckedAdd(uint32(i)) {
				return fmt.Errorf("query %d claimed more than once (again by worker %d)", i, tid)
			}
			claims++
		}
		counted += ts.Queries
	}
	if counted != n || claims != n || seen.GetCardinality() != uint64(n) {
		return fmt.Errorf("coverage incomplete: %d of %d queries claimed, counters sum to %d", seen.GetCardinality(), n, counted)
	}
	return nil
}
