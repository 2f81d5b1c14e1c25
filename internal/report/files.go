// Package report writes the result files of build and query runs and keeps
// an optional history of past runs.
package report

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// File names written into a run's output directory.
const (
	PerformanceFile      = "performance_metrics.txt"
	BuildSummaryFile     = "build_summary_metrics.csv"
	BuildProgressFile    = "build_progress.csv"
	QueryResultsBase     = "query_metrics"
	ThreadStatsFile      = "thread_stats.csv"
	QuerySummaryFile     = "query_summary_metrics.csv"
	LatencyStreamFile    = "query_latency_stream.csv"
	defaultWriterBufSize = 64 << 10
)

// SaveFile creates path and hands a buffered writer to write. The file is
// flushed and closed on every path; the first error wins.
func SaveFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	bw := bufio.NewWriterSize(f, defaultWriterBufSize)
	if err := write(bw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return bw.Flush()
}

// FormatFloat renders v the way every result file does: the shortest
// representation that round-trips, never in exponent form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteQueryCSV writes one query_id,latency_ms row per query.
func WriteQueryCSV(w io.Writer, ids []uint64, latenciesMs []float64) error {
	if len(ids) != len(latenciesMs) {
		return fmt.Errorf("%d ids for %d latencies", len(ids), len(latenciesMs))
	}
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"query_id", "latency_ms"}); err != nil {
		return err
	}
	row := make([]string, 2)
	for i := range ids {
		row[0] = strconv.FormatUint(ids[i], 10)
		row[1] = FormatFloat(latenciesMs[i])
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteThreadStats writes one thread,queries,percentage row per worker. The
// percentage is relative to total, the size of the workload.
func WriteThreadStats(w io.Writer, perThread []int, total int) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"thread", "queries", "percentage"}); err != nil {
		return err
	}
	for tid, q := range perThread {
		pct := 0.0
		if total > 0 {
			pct = float64(q) * 100 / float64(total)
		}
		if err := cw.Write([]string{strconv.Itoa(tid), strconv.Itoa(q), FormatFloat(pct)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ProgressLog accumulates build progress ticks for build_progress.csv.
type ProgressLog struct {
	inserted []int
}

// Observe records a tick. Its signature matches build.ProgressFunc.
func (p *ProgressLog) Observe(inserted, _ int) {
	p.inserted = append(p.inserted, inserted)
}

// Ticks returns the recorded insert counts.
func (p *ProgressLog) Ticks() []int {
	return p.inserted
}

// WriteCSV writes an "inserted" column with one row per tick.
func (p *ProgressLog) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"inserted"}); err != nil {
		return err
	}
	for _, n := range p.inserted {
		if err := cw.Write([]string{strconv.Itoa(n)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
