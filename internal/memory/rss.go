package memory

import (
	"os"

	"github.com/23skdu/hnswbench/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

const bytesPerMB = 1024 * 1024

// CurrentRSS returns the resident set size of this process in bytes, or 0 if
// it cannot be determined.
func CurrentRSS() uint64 {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := p.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}

// PeakRSSMB returns PeakRSS in whole mebibytes.
func PeakRSSMB() uint64 {
	return PeakRSS() / bytesPerMB
}

// LogUsage reports peak and current RSS for a named phase and publishes them
// as gauges.
func LogUsage(logger zerolog.Logger, phase string) {
	peak := PeakRSS()
	current := CurrentRSS()
	metrics.PeakRSSBytes.Set(float64(peak))
	metrics.CurrentRSSBytes.WithLabelValues(phase).Set(float64(current))
	logger.Info().
		Str("phase", phase).
		Uint64("peak_rss_mb", peak/bytesPerMB).
		Uint64("current_rss_mb", current/bytesPerMB).
		Msg("memory usage")
}
