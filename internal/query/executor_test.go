package query

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/23skdu/hnswbench/internal/affinity"
	"github.com/23skdu/hnswbench/internal/dataset"
	berrors "github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/index/indextest"
	"github.com/23skdu/hnswbench/internal/logging"
	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populated(t testing.TB, n int) (*indextest.Stub, *dataset.Dataset) {
	t.Helper()
	ds := dataset.Synthetic(n, 4, 9)
	for i := range ds.IDs {
		ds.IDs[i] = uint64(500 + i)
	}
	stub := &indextest.Stub{}
	for i := 0; i < ds.Len(); i++ {
		require.NoError(t, stub.Insert(ds.Vector(i), ds.IDs[i]))
	}
	return stub, ds
}

func newTestExecutor(stub *indextest.Stub, opts ...Option) *Executor {
	opts = append([]Option{WithPinner(affinity.Noop{}), WithClaimRecording(true)}, opts...)
	return NewExecutor(stub, logging.DiscardLogger(), opts...)
}

func TestRun_CoversEveryQuery(t *testing.T) {
	stub, ds := populated(t, 200)

	res, err := newTestExecutor(stub).Run(ds, 3, 48, 4)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Completed)
	assert.Equal(t, 48, stub.SearchBreadth())
	assert.Equal(t, int64(200), stub.Searches())
	require.NoError(t, res.VerifyCoverage())

	ids := append([]uint64(nil), res.ProcessedIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, ds.IDs, ids)
	assert.Equal(t, ds.IDs, res.ProcessedIDs)

	var sum int
	for tid := range res.Threads {
		sum += res.Threads[tid].Queries
	}
	assert.Equal(t, 200, sum)
	assert.Greater(t, res.QPS(), 0.0)
	assert.Len(t, res.LatenciesMs(), 200)
}

func TestRun_MoreThreadsThanQueries(t *testing.T) {
	stub, ds := populated(t, 3)
	res, err := newTestExecutor(stub).Run(ds, 1, 0, 16)
	require.NoError(t, err)
	assert.Len(t, res.Threads, 16)
	require.NoError(t, res.VerifyCoverage())
	assert.Zero(t, stub.SearchBreadth())
}

func TestRun_EmptyWorkload(t *testing.T) {
	stub := &indextest.Stub{}
	res, err := newTestExecutor(stub).Run(&dataset.Dataset{Dim: 4}, 1, 10, 2)
	require.NoError(t, err)
	assert.Zero(t, res.Completed)
	assert.Zero(t, res.QPS())
	assert.NoError(t, res.VerifyCoverage())
}

func TestRun_InvalidArguments(t *testing.T) {
	stub, ds := populated(t, 2)
	_, err := newTestExecutor(stub).Run(ds, 0, 10, 1)
	assert.ErrorIs(t, err, berrors.ErrInvalidArgument)
	_, err = newTestExecutor(stub).Run(ds, 1, 10, 0)
	assert.ErrorIs(t, err, berrors.ErrInvalidArgument)
}

func TestRun_SearchErrorIsReturnedAfterJoin(t *testing.T) {
	stub, ds := populated(t, 50)
	bad := &ds.Vector(17)[0]
	boom := errors.New("malformed query")
	stub.SearchErr = func(v []float32) error {
		if &v[0] == bad {
			return boom
		}
		return nil
	}

	before := testutil.ToFloat64(metrics.QueryErrorsTotal)
	res, err := newTestExecutor(stub).Run(ds, 1, 0, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, berrors.ErrIndex)
	require.NotNil(t, res)
	assert.Equal(t, 49, res.Completed)
	assert.Zero(t, res.ProcessedIDs[17])
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.QueryErrorsTotal))

	var failed int
	for _, ts := range res.Threads {
		if ts.Err != nil {
			failed++
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRun_DefaultPinner(t *testing.T) {
	stub, ds := populated(t, 64)
	res, err := NewExecutor(stub, logging.DiscardLogger(), WithClaimRecording(true)).Run(ds, 1, 0, 3)
	require.NoError(t, err)
	require.NoError(t, res.VerifyCoverage())
}

func TestRunSequential(t *testing.T) {
	stub, ds := populated(t, 25)
	before := testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("sequential"))

	res, err := newTestExecutor(stub, WithProgressEvery(10)).RunSequential(ds, 2, 12)
	require.NoError(t, err)
	require.Len(t, res.Threads, 1)
	assert.Equal(t, 25, res.Threads[0].Queries)
	assert.Equal(t, ds.IDs, res.ProcessedIDs)
	assert.Equal(t, 12, stub.SearchBreadth())
	assert.Equal(t, 100.0, res.ThreadShare(0))
	require.NoError(t, res.VerifyCoverage())
	assert.Equal(t, before+25, testutil.ToFloat64(metrics.QueriesTotal.WithLabelValues("sequential")))
}

func TestVerifyCoverage_Detects(t *testing.T) {
	r := newResult(3, 2)
	r.Threads[0] = ThreadStat{Queries: 2, Claimed: []int{0, 1}}
	r.Threads[1] = ThreadStat{Queries: 1, Claimed: []int{1}}
	assert.ErrorContains(t, r.VerifyCoverage(), "more than once")

	r.Threads[1] = ThreadStat{Queries: 1, Claimed: []int{3}}
	assert.ErrorContains(t, r.VerifyCoverage(), "out-of-range")

	r.Threads[1] = ThreadStat{}
	assert.ErrorContains(t, r.VerifyCoverage(), "incomplete")

	r.Threads[1] = ThreadStat{Queries: 1}
	assert.ErrorIs(t, r.VerifyCoverage(), errClaimsNotRecorded)
}

func TestResultHelpers(t *testing.T) {
	r := newResult(2, 2)
	r.Latencies[0] = 1500 * time.Microsecond
	r.Latencies[1] = 2 * time.Millisecond
	r.Threads[0].Queries = 1
	r.Threads[1].Queries = 1
	r.Completed = 2
	r.Elapsed = 500 * time.Millisecond

	assert.Equal(t, []float64{1.5, 2}, r.LatenciesMs())
	assert.Equal(t, 4.0, r.QPS())
	assert.Equal(t, 50.0, r.ThreadShare(1))
	assert.Equal(t, 2, r.Queries())
}

// TestExactlyOnceProperty checks, for arbitrary workload sizes and thread
// counts, that every query index is claimed by exactly one worker and that the
// per-worker counters add up to the workload.
func TestExactlyOnceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)
	stub, full := populated(t, 256)

	properties.Property("claims partition the workload", prop.ForAll(
		func(n, threads int) bool {
			if threads > n {
				threads = n
			}
			ds := &dataset.Dataset{Dim: full.Dim, Vectors: full.Vectors[:n*full.Dim], IDs: full.IDs[:n]}
			res, err := newTestExecutor(stub).Run(ds, 1, 0, threads)
			if err != nil {
				return false
			}
			var sum int
			for _, ts := range res.Threads {
				sum += ts.Queries
			}
			return sum == n && res.VerifyCoverage() == nil
		},
		gen.IntRange(1, 256),
		gen.IntRange(1, 32),
	))

	properties.TestingRun(t)
}

func BenchmarkRun(b *testing.B) {
	stub, ds := populated(b, 1024)
	e := NewExecutor(stub, logging.DiscardLogger(), WithPinner(affinity.Noop{}))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = e.Run(ds, 10, 0, 4)
	}
}
