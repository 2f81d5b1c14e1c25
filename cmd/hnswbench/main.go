// Command hnswbench builds vector indexes from headerless binary datasets and
// benchmarks concurrent queries against them.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/harness"
	"github.com/23skdu/hnswbench/internal/logging"
	"github.com/23skdu/hnswbench/internal/report"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once configuration is loaded.
type app struct {
	cfg     Config
	logger  zerolog.Logger
	history *report.History
}

func newRootCmd() *cobra.Command {
	a := &app{logger: logging.DiscardLogger()}

	rootCmd := &cobra.Command{
		Use:          "hnswbench",
		Short:        "Bulk-load and benchmark HNSW vector indexes",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	rootCmd.AddCommand(newBuildCmd(a), newQueryCmd(a), newGenCmd(a))
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("hnswbench %s (%s)\n", version, commit)
		},
	})

	return rootCmd
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}
	a.cfg = cfg

	logger, err := logging.NewLogger(logging.Config{Format: cfg.LogFormat, Level: cfg.LogLevel, Output: os.Stderr})
	if err != nil {
		return err
	}
	a.logger = logger

	if cfg.MetricsAddr != "" {
		go a.serveMetrics(cfg.MetricsAddr)
	}
	if cfg.HistoryDB != "" {
		h, err := report.OpenHistory(ctx, cfg.HistoryDB)
		if err != nil {
			a.logger.Error().Err(err).Str("path", cfg.HistoryDB).Msg("cannot open run history")
			return err
		}
		a.history = h
	}
	return nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	a.logger.Info().Str("address", addr).Msg("Starting metrics server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error().Err(err).Str("address", addr).Msg("Failed to start metrics server")
	}
}

func (a *app) close() error {
	if a.history == nil {
		return nil
	}
	err := a.history.Close()
	a.history = nil
	return err
}

// options maps the ambient configuration onto harness options.
func (a *app) options() harness.Options {
	mode, _ := dataset.ParseMode(a.cfg.LoadMode)
	format, _ := report.ParseFormat(a.cfg.ExportFormat)
	return harness.Options{
		Logger:        a.logger,
		LoadMode:      mode,
		OutputDir:     a.cfg.OutputDir,
		ExportFormat:  format,
		ProgressEvery: a.cfg.ProgressEvery,
		PinThreads:    a.cfg.PinThreads,
		History:       a.history,
	}
}
