package memory

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/23skdu/hnswbench/internal/metrics"
)

// DefaultSampleInterval is how often HeapSampler reads runtime statistics.
const DefaultSampleInterval = 250 * time.Millisecond

// MemStatsReader interfaces runtime.ReadMemStats for testing
type MemStatsReader interface {
	ReadMemStats(m *runtime.MemStats)
}

type defaultMemStatsReader struct{}

func (defaultMemStatsReader) ReadMemStats(m *runtime.MemStats) {
	runtime.ReadMemStats(m)
}

// HeapSampler tracks the Go heap high-water mark over a phase. The resident
// set reported by PeakRSS includes the mapped and copied dataset; the sampler
// isolates what the index itself holds on the heap.
type HeapSampler struct {
	reader MemStatsReader

	mu      sync.Mutex
	peak    uint64
	samples int
}

// NewHeapSampler creates a sampler reading the live runtime statistics.
func NewHeapSampler() *HeapSampler {
	return &HeapSampler{reader: defaultMemStatsReader{}}
}

// Start samples every interval until ctx is canceled. A final sample is taken
// on cancellation so short phases still record a value.
func (s *HeapSampler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var m runtime.MemStats
	for {
		select {
		case <-ctx.Done():
			s.reader.ReadMemStats(&m)
			s.observe(m.HeapInuse)
			return
		case <-ticker.C:
			s.reader.ReadMemStats(&m)
			s.observe(m.HeapInuse)
		}
	}
}

func (s *HeapSampler) observe(heapInUse uint64) {
	metrics.HeapInuseBytes.Set(float64(heapInUse))

	s.mu.Lock()
	s.samples++
	if heapInUse > s.peak {
		s.peak = heapInUse
		metrics.PeakHeapInuseBytes.Set(float64(heapInUse))
	}
	s.mu.Unlock()
}

// Peak returns the largest heap-in-use value observed, in bytes.
func (s *HeapSampler) Peak() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peak
}

// PeakMB returns Peak in whole mebibytes.
func (s *HeapSampler) PeakMB() uint64 {
	return s.Peak() / bytesPerMB
}

// Samples returns the number of observations taken so far.
func (s *HeapSampler) Samples() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samples
}
