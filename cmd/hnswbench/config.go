package main

import (
	"errors"
	"os"

	"github.com/23skdu/hnswbench/internal/dataset"
	"github.com/23skdu/hnswbench/internal/report"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces every environment setting, e.g. HNSWBENCH_LOG_LEVEL.
const envPrefix = "HNSWBENCH"

// Config validation errors
var (
	ErrInvalidLogFormat     = errors.New("log_format must be 'json', 'console' or 'text'")
	ErrInvalidLogLevel      = errors.New("log_level must be debug, info, warn, or error")
	ErrInvalidLoadMode      = errors.New("load_mode must be 'mmap' or 'read'")
	ErrInvalidExportFormat  = errors.New("export_format must be 'csv', 'parquet' or 'arrow'")
	ErrInvalidProgressEvery = errors.New("progress_every must not be negative")
	ErrInvalidOutputDir     = errors.New("output_dir cannot be empty")
)

// Config holds the ambient settings shared by every command. Run parameters
// come from positional arguments instead.
type Config struct {
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	LoadMode string `envconfig:"LOAD_MODE" default:"mmap"`
	// ProgressEvery overrides the progress cadence of builds and sequential
	// query runs; zero keeps each component's default.
	ProgressEvery int    `envconfig:"PROGRESS_EVERY" default:"0"`
	OutputDir     string `envconfig:"OUTPUT_DIR" default:"."`
	ExportFormat  string `envconfig:"EXPORT_FORMAT" default:"csv"`
	// HistoryDB is a DuckDB file that accumulates run summaries. Empty
	// disables history.
	HistoryDB string `envconfig:"HISTORY_DB"`
	// MetricsAddr is the Prometheus listen address. Empty disables the
	// endpoint.
	MetricsAddr string `envconfig:"METRICS_ADDR"`
	PinThreads  bool   `envconfig:"PIN_THREADS" default:"true"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() Config {
	return Config{
		LogFormat:    "console",
		LogLevel:     "info",
		LoadMode:     string(dataset.ModeMmap),
		OutputDir:    ".",
		ExportFormat: string(report.FormatCSV),
		PinThreads:   true,
	}
}

// LoadConfig reads an optional .env file from the working directory and then
// the HNSWBENCH_ environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, ValidateConfig(&cfg)
}

// ValidateConfig validates the configuration and returns an error if invalid
func ValidateConfig(cfg *Config) error {
	switch cfg.LogFormat {
	case "json", "console", "text":
	default:
		return ErrInvalidLogFormat
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" && cfg.LogLevel != "error" {
		return ErrInvalidLogLevel
	}
	if _, err := dataset.ParseMode(cfg.LoadMode); err != nil {
		return ErrInvalidLoadMode
	}
	if _, err := report.ParseFormat(cfg.ExportFormat); err != nil {
		return ErrInvalidExportFormat
	}
	if cfg.ProgressEvery < 0 {
		return ErrInvalidProgressEvery
	}
	if cfg.OutputDir == "" {
		return ErrInvalidOutputDir
	}
	return nil
}
