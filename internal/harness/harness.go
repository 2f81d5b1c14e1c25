// Package harness wires the loader, normalizer, build driver, query executor
// and reporting into the two benchmark runs.
package harness

import (
	"fmt"
	"os"

	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/index"
	"github.com/23skdu/hnswbench/internal/report"
	"github.com/rs/zerolog"
)

// Options are shared by build and query runs.
type Options struct {
	Logger        zerolog.Logger
	LoadMode      dataset.Mode
	OutputDir     string
	ExportFormat  report.Format
	ProgressEvery int
	PinThreads    bool
	// History, when set, receives every run summary.
	History *report.History

	// NewIndex creates the index a build run fills. Defaults to index.NewHNSW.
	NewIndex func(index.Config) (index.Index, error)
	// OpenIndex loads the index a query run searches. Defaults to index.Load.
	OpenIndex func(path string) (index.Index, error)
}

func (o *Options) withDefaults() error {
	if o.LoadMode == "" {
		o.LoadMode = dataset.ModeMmap
	}
	if o.ExportFormat == "" {
		o.ExportFormat = report.FormatCSV
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.NewIndex == nil {
		o.NewIndex = func(cfg index.Config) (index.Index, error) {
			return index.NewHNSW(cfg)
		}
	}
	if o.OpenIndex == nil {
		o.OpenIndex = func(path string) (index.Index, error) {
			return index.Load(path)
		}
	}
	if err := os.MkdirAll(o.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// configured is implemented by indexes that know their construction
// parameters.
type configured interface {
	Config() index.Config
}
