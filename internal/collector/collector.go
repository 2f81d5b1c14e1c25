// Package collector accumulates named sample streams and summarizes them.
//
// A Collector is not safe for concurrent use. The benchmark feeds it from a
// single goroutine once workers have joined.
package collector

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
)

// Padding is written for positions past the end of a shorter stream.
const Padding = "0.0"

// Collector maps stream names to append-only sample sequences.
type Collector struct {
	order   []string
	streams map[string][]float64
}

// New returns an empty collector.
func New() *Collector {
	return &Collector{streams: make(map[string][]float64)}
}

// Record appends v to the named stream, creating it on first use.
func (c *Collector) Record(name string, v float64) {
	s, ok := c.streams[name]
	if !ok {
		c.order = append(c.order, name)
	}
	c.streams[name] = append(s, v)
}

// RecordAll appends every value in vs to the named stream.
func (c *Collector) RecordAll(name string, vs []float64) {
	s, ok := c.streams[name]
	if !ok {
		c.order = append(c.order, name)
	}
	c.streams[name] = append(s, vs...)
}

// RecordDuration appends d in milliseconds.
func (c *Collector) RecordDuration(name string, d time.Duration) {
	c.Record(name, float64(d)/float64(time.Millisecond))
}

// Names returns the stream names in first-recorded order.
func (c *Collector) Names() []string {
	return slices.Clone(c.order)
}

// Values returns a copy of the named stream, or nil if it does not exist.
func (c *Collector) Values(name string) []float64 {
	return slices.Clone(c.streams[name])
}

// Len returns the number of samples in the named stream.
func (c *Collector) Len(name string) int {
	return len(c.streams[name])
}

// Summary describes one stream.
type Summary struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
}

// Summary summarizes the named stream. ok is false if the stream does not
// exist.
func (c *Collector) Summary(name string) (s Summary, ok bool) {
	vs, ok := c.streams[name]
	if !ok {
		return Summary{}, false
	}
	return Summarize(vs), true
}

// Summarize computes count, extremes, mean and percentiles of vs without
// modifying it. An empty input yields the zero Summary.
func Summarize(vs []float64) Summary {
	if len(vs) == 0 {
		return Summary{}
	}
	sorted := slices.Clone(vs)
	slices.Sort(sorted)
	return Summary{
		Count: len(vs),
		Min:   floats.Min(vs),
		Max:   floats.Max(vs),
		Mean:  floats.Sum(vs) / float64(len(vs)),
		P50:   Percentile(sorted, 0.50),
		P95:   Percentile(sorted, 0.95),
		P99:   Percentile(sorted, 0.99),
	}
}

// Percentile returns the element of the ascending slice sorted at position
// floor(len*p). There is no interpolation between ranks, so for 100 samples
// p99 is the maximum. p at or above 1 returns the last element.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}

// WriteCSV writes one column per stream in first-recorded order, a header row
// of stream names, and one row per sample position up to the longest stream.
// Positions past the end of a shorter stream hold Padding.
func (c *Collector) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(c.order); err != nil {
		return err
	}

	rows := 0
	for _, name := range c.order {
		rows = max(rows, len(c.streams[name]))
	}
	record := make([]string, len(c.order))
	for i := 0; i < rows; i++ {
		for j, name := range c.order {
			s := c.streams[name]
			if i < len(s) {
				record[j] = strconv.FormatFloat(s[i], 'g', -1, 64)
			} else {
				record[j] = Padding
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the CSV export to path.
func (c *Collector) SaveCSV(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return c.WriteCSV(f)
}

// LogSummary logs the summary of every stream.
func (c *Collector) LogSummary(logger zerolog.Logger) {
	for _, name := range c.order {
		s := Summarize(c.streams[name])
		logger.Info().
			Str("metric", name).
			Int("count", s.Count).
			Float64("min", s.Min).
			Float64("max", s.Max).
			Float64("mean", s.Mean).
			Float64("p50", s.P50).
			Float64("p95", s.P95).
			Float64("p99", s.P99).
			Msg("metric summary")
	}
}
