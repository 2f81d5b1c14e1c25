package harness

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/23skdu/hnswbench/internal/build"
	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/23skdu/hnswbench/internal/memory"
	"github.com/23skdu/hnswbench/internal/normalize"
	"github.com/23skdu/hnswbench/internal/report"
)

// BuildSpec describes one build run.
type BuildSpec struct {
	VectorPath     string
	IDPath         string
	Dim            int
	M              int
	EfConstruction int
	Metric         index.Metric
	IndexPath      string
	// Threads is the number of normalization workers. Insertion is always
	// single-threaded.
	Threads int
}

// Validate checks the numeric parameters.
func (s BuildSpec) Validate() error {
	switch {
	case s.Dim <= 0:
		return errors.NewInvalidArgument("build", fmt.Sprintf("dimension must be positive, got %d", s.Dim))
	case s.Threads < 1:
		return errors.NewInvalidArgument("build", fmt.Sprintf("thread count must be positive, got %d", s.Threads))
	case s.IndexPath == "":
		return errors.NewInvalidArgument("build", "index output path is required")
	}
	return nil
}

// BuildReport is the outcome of a build run.
type BuildReport struct {
	Summary        *report.Summary
	Stats          build.Stats
	Vectors        int
	LoadTime       time.Duration
	PreprocessTime time.Duration
	TotalTime      time.Duration
}

// Build loads a paired dataset, normalizes it for inner-product spaces,
// inserts it into a fresh index, saves the index and writes the build
// reports into the output directory.
func Build(ctx context.Context, opts Options, spec BuildSpec) (*BuildReport, error) {
	if err := opts.withDefaults(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger.With().Str("run", report.KindBuild).Logger()
	started := time.Now()
	memory.LogUsage(logger, "start")

	loader := dataset.NewLoader(opts.LoadMode, logger)
	ds, err := loader.LoadPaired(spec.VectorPath, spec.IDPath, spec.Dim)
	if err != nil {
		return nil, err
	}
	loadTime := time.Since(started)
	logger.Info().
		Int("vectors", ds.Len()).
		Int("dim", ds.Dim).
		Str("mode", string(loader.Mode())).
		Dur("elapsed", loadTime).
		Msg("dataset loaded")
	memory.LogUsage(logger, "after_load")

	preStart := time.Now()
	if spec.Metric.NeedsNormalization() {
		normalized, err := normalize.Normalize(ds.Vectors, ds.Dim, spec.Threads)
		if err != nil {
			return nil, err
		}
		ds.Vectors = normalized
		logger.Info().Int("workers", spec.Threads).Dur("elapsed", time.Since(preStart)).Msg("vectors normalized")
	}
	preTime := time.Since(preStart)

	idx, err := opts.NewIndex(index.Config{
		Dim:            spec.Dim,
		M:              spec.M,
		EfConstruction: spec.EfConstruction,
		Metric:         spec.Metric,
		Capacity:       ds.Len(),
	})
	if err != nil {
		return nil, err
	}

	var progress report.ProgressLog
	driver := build.NewDriver(idx, logger,
		build.WithProgressEvery(opts.ProgressEvery),
		build.WithProgress(progress.Observe))

	sampler := memory.NewHeapSampler()
	sampleCtx, stopSampling := context.WithCancel(ctx)
	sampled := make(chan struct{})
	go func() {
		defer close(sampled)
		sampler.Start(sampleCtx, memory.DefaultSampleInterval)
	}()
	stats, err := driver.Run(ds)
	stopSampling()
	<-sampled
	if err != nil {
		return nil, err
	}
	memory.LogUsage(logger, "after_build")
	logger.Info().Uint64("peak_heap_mb", sampler.PeakMB()).Int("samples", sampler.Samples()).Msg("heap during build")

	if err := idx.Save(spec.IndexPath); err != nil {
		return nil, err
	}
	logger.Info().Str("path", spec.IndexPath).Msg("index saved")
	total := time.Since(started)

	rep := &BuildReport{
		Stats:          stats,
		Vectors:        ds.Len(),
		LoadTime:       loadTime,
		PreprocessTime: preTime,
		TotalTime:      total,
	}
	rep.Summary = report.NewSummary(report.KindBuild, started).
		Add("elements", float64(ds.Len())).
		Add("dimension", float64(spec.Dim)).
		Add("M", float64(spec.M)).
		Add("efConstruction", float64(spec.EfConstruction)).
		Add("threads", float64(spec.Threads)).
		Add("load_time_s", loadTime.Seconds()).
		Add("preprocess_time_s", preTime.Seconds()).
		Add("build_time_s", stats.Elapsed.Seconds()).
		Add("total_time_s", total.Seconds()).
		Add("throughput_vectors_per_s", stats.Throughput).
		Add("peak_rss_mb", float64(memory.PeakRSSMB())).
		Add("peak_heap_mb", float64(sampler.PeakMB()))

	perf := report.BuildParams{
		Timestamp:      time.Now(),
		Vectors:        ds.Len(),
		Dim:            spec.Dim,
		Space:          string(spec.Metric),
		M:              spec.M,
		EfConstruction: spec.EfConstruction,
		Threads:        spec.Threads,
		LoadTime:       loadTime,
		PreprocessTime: preTime,
		BuildTime:      stats.Elapsed,
		TotalTime:      total,
		Throughput:     stats.Throughput,
		Host:           report.DescribeHost(),
	}
	ds.Release()

	outputs := []struct {
		name  string
		write func(io.Writer) error
	}{
		{report.PerformanceFile, func(w io.Writer) error { return report.WritePerformance(w, perf) }},
		{report.BuildSummaryFile, rep.Summary.WriteCSV},
		{report.BuildProgressFile, progress.WriteCSV},
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

	logger.Info().
		Str("run_id", rep.Summary.RunID).
		Int("vectors", rep.Vectors).
		Float64("build_time_s", stats.Elapsed.Seconds()).
		Float64("total_time_s", total.Seconds()).
		Float64("vectors_per_sec", stats.Throughput).
		Str("output_dir", opts.OutputDir).
		Msg("build complete")
	return rep, nil
}
