package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestNewLogger verifies basic logger creation
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
		level  string
	}{
		{"JSON Info", "json", "info"},
		{"JSON Debug", "json", "debug"},
		{"JSON Error", "json", "error"},
		{"Text Info", "text", "info"},
		{"Console Debug", "console", "debug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := NewLogger(Config{
				Format: tt.format,
				Level:  tt.level,
				Output: &buf,
			})
			if err != nil {
				t.Fatalf("NewLogger() error = %v", err)
			}
			logger.Error().Msg("heartbeat")
			if !strings.Contains(buf.String(), "heartbeat") {
				t.Errorf("Expected heartbeat in output, got: %s", buf.String())
			}
		})
	}
}

// TestNewLogger_InvalidLevel verifies error handling for invalid log level
func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(Config{
		Format: "json",
		Level:  "invalid",
	})
	if err == nil {
		t.Error("Expected error for invalid log level")
	}
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(Config{
		Format: "xml",
		Level:  "info",
	})
	if err == nil {
		t.Error("Expected error for invalid log format")
	}
}

// TestStructuredLogging verifies structured logging with fields
func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	logger.Info().
		Str("phase", "load").
		Int("vectors", 42).
		Msg("dataset loaded")

	output := buf.String()
	if !strings.Contains(output, "dataset loaded") {
		t.Errorf("Expected message in output, got: %s", output)
	}
	if !strings.Contains(output, `"phase":"load"`) {
		t.Errorf("Expected phase in output, got: %s", output)
	}
	if !strings.Contains(output, `"vectors":42`) {
		t.Errorf("Expected vectors in output, got: %s", output)
	}
}

// TestLogLevelFiltering verifies that log levels are properly filtered
func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "warn", Output: &buf})

	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()
	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be present")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be present")
	}
}

// TestJSONOutput verifies JSON format output
func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	logger.Info().Str("foo", "bar").Msg("json test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON output: %v, output: %s", err, buf.String())
	}

	if entry["message"] != "json test" {
		t.Errorf("Expected message='json test', got %v", entry["message"])
	}
	if entry["foo"] != "bar" {
		t.Errorf("Expected foo='bar', got %v", entry["foo"])
	}
	if _, ok := entry["time"]; !ok {
		t.Errorf("Expected timestamp field, got %v", entry)
	}
}

// TestDiscardLogger verifies the discard logger for tests
func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger()
	logger.Info().Msg("this should be discarded")
	logger.Error().Msg("this too")
}

// TestLoggerWithFields verifies logger.With() for adding default fields
func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	baseLogger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	childLogger := baseLogger.With().Str("component", "query").Logger()
	childLogger.Info().Msg("message with component")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	if entry["component"] != "query" {
		t.Errorf("Expected component='query', got %v", entry["component"])
	}
}

// TestLoggingMetrics verifies the Prometheus hook counts entries per level
func TestLoggingMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(Config{Format: "json", Level: "info", Output: &buf})

	warnBefore := testutil.ToFloat64(LogEntriesTotal.WithLabelValues("warn"))
	errorsBefore := testutil.ToFloat64(LogErrorsTotal)

	logger.Warn().Msg("count mismatch")
	logger.Error().Msg("fatal")
	logger.Debug().Msg("filtered")

	if got := testutil.ToFloat64(LogEntriesTotal.WithLabelValues("warn")) - warnBefore; got != 1 {
		t.Errorf("warn entries delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(LogErrorsTotal) - errorsBefore; got != 1 {
		t.Errorf("error entries delta = %v, want 1", got)
	}
}

// TestDefaultConfig verifies default configuration values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Format != "json" {
		t.Errorf("Expected default format='json', got %s", cfg.Format)
	}
	if cfg.Level != "info" {
		t.Errorf("Expected default level='info', got %s", cfg.Level)
	}
}
