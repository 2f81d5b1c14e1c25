package harness

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/23skdu/hnswbench/internal/affinity"
	"github.com/23skdu/hnswbench/internal/collector"
	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/23skdu/hnswbench/internal/memory"
	"github.com/23skdu/hnswbench/internal/normalize"
	"github.com/23skdu/hnswbench/internal/query"
	"github.com/23skdu/hnswbench/internal/report"
)

// LatencyStream is the collector stream holding per-query latencies.
const LatencyStream = "query_latency_ms"

// QuerySpec describes one query run.
type QuerySpec struct {
	IndexPath  string
	QueryPath  string
	IDPath     string
	Dim        int
	K          int
	EfSearch   int
	Threads    int
	Sequential bool
	// Metric overrides the metric recorded in the index. Empty means use the
	// index's own, falling back to l2.
	Metric index.Metric
}

// Validate checks the numeric parameters.
func (s QuerySpec) Validate() error {
	switch {
	case s.Dim <= 0:
		return errors.NewInvalidArgument("query", fmt.Sprintf("dimension must be positive, got %d", s.Dim))
	case s.K < 1:
		return errors.NewInvalidArgument("query", fmt.Sprintf("k must be positive, got %d", s.K))
	case s.Threads < 1 && !s.Sequential:
		return errors.NewInvalidArgument("query", fmt.Sprintf("thread count must be positive, got %d", s.Threads))
	}
	return nil
}

// QueryReport is the outcome of a query run.
type QueryReport struct {
	Summary *report.Summary
	Result  *query.Result
	Latency collector.Summary
}

// Query loads an index and a query set, runs the workload and writes the
// query reports into the output directory.
func Query(ctx context.Context, opts Options, spec QuerySpec) (*QueryReport, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With().Str("run", report.KindQuery).Logger()
	started := time.Now()
	memory.LogUsage(logger, "start")

	idx, err := opts.OpenIndex(spec.IndexPath)
	if err != nil {
		return nil, err
	}
	metric := spec.Metric
	if c, ok := idx.(configured); ok {
		cfg := c.Config()
		if cfg.Dim != spec.Dim {
			return nil, errors.NewInvalidArgument("query",
				fmt.Sprintf("index dimension %d does not match query dimension %d", cfg.Dim, spec.Dim))
		}
		if metric == "" {
			metric = cfg.Metric
		}
	}
	if metric == "" {
		metric = index.MetricL2
	}
	logger.Info().Str("path", spec.IndexPath).Int("elements", idx.Len()).Str("metric", string(metric)).Msg("index loaded")

	qs, err := dataset.NewLoader(opts.LoadMode, logger).LoadQueries(spec.QueryPath, spec.IDPath, spec.Dim)
	if err != nil {
		return nil, err
	}
	if metric.NeedsNormalization() {
		if qs.Vectors, err = normalize.Normalize(qs.Vectors, qs.Dim, max(spec.Threads, 1)); err != nil {
			return nil, err
		}
	}
	memory.LogUsage(logger, "after_load")

	pinner := affinity.Pinner(affinity.Noop{})
	if opts.PinThreads {
		pinner = affinity.Default()
	}
	exec := query.NewExecutor(idx, logger,
		query.WithPinner(pinner),
		query.WithProgressEvery(opts.ProgressEvery))

	threads := spec.Threads
	var res *query.Result
	if spec.Sequential {
		threads = 1
		res, err = exec.RunSequential(qs, spec.K, spec.EfSearch)
	} else {
		res, err = exec.Run(qs, spec.K, spec.EfSearch, threads)
	}
	if err != nil {
		return nil, err
	}
	memory.LogUsage(logger, "after_queries")

	latMs := res.LatenciesMs()
	coll := collector.New()
	coll.RecordAll(LatencyStream, latMs)
	lat, _ := coll.Summary(LatencyStream)

	n := res.Queries()
	realAvg := 0.0
	if n > 0 {
		realAvg = res.Elapsed.Seconds() * 1000 / float64(n)
	}
	rep := &QueryReport{Result: res, Latency: lat}
	rep.Summary = report.NewSummary(report.KindQuery, started).
		Add("queries", float64(n)).
		Add("threads", float64(threads)).
		Add("dimension", float64(spec.Dim)).
		Add("k", float64(spec.K)).
		Add("efSearch", float64(spec.EfSearch)).
		Add("total_time_s", res.Elapsed.Seconds()).
		Add("qps", res.QPS()).
		Add("avg_latency_ms", lat.Mean).
		Add("real_avg_latency_ms", realAvg).
		Add("p50_ms", lat.P50).
		Add("p95_ms", lat.P95).
		Add("p99_ms", lat.P99).
		Add("peak_rss_mb", float64(memory.PeakRSSMB()))

	perThread := make([]int, len(res.Threads))
	for tid, ts := range res.Threads {
		perThread[tid] = ts.Queries
		logger.Debug().
			Int("thread", tid).
			Int("queries", ts.Queries).
			Float64("percentage", res.ThreadShare(tid)).
			Msg("thread share")
	}

	resultsPath := filepath.Join(opts.OutputDir, opts.ExportFormat.FileName())
	if err := report.ExportQueryResults(resultsPath, opts.ExportFormat, res.ProcessedIDs, latMs); err != nil {
		return rep, err
	}
	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{report.ThreadStatsFile, func(w io.Writer) error { return report.WriteThreadStats(w, perThread, n) }},
		{report.QuerySummaryFile, rep.Summary.WriteCSV},
		{report.LatencyStreamFile, coll.WriteCSV},
	}
	for _, out := range outputs {
		if err := report.SaveFile(filepath.Join(opts.OutputDir, out.name), out.write); err != nil {
			return rep, err
		}
	}
	if opts.History != nil {
		if err := opts.History.Append(ctx, rep.Summary); err != nil {
			return rep, err
		}
	}

	coll.LogSummary(logger)
	logger.Info().
		Str("run_id", rep.Summary.RunID).
		Int("queries", n).
		Int("threads", threads).
		Float64("qps", res.QPS()).
		Float64("p50_ms", lat.P50).
		Float64("p95_ms", lat.P95).
		Float64("p99_ms", lat.P99).
		Str("output_dir", opts.OutputDir).
		Msg("query run complete")
	return rep, nil
}
