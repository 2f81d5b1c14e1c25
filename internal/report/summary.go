package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// Run kinds.
const (
	KindBuild = "build"
	KindQuery = "query"
)

// Entry is one named value of a run summary.
type Entry struct {
	Name  string
	Value float64
}

// Summary is the ordered metric,value table of one run.
type Summary struct {
	RunID   string
	Kind    string
	Started time.Time
	Entries []Entry
}

// NewSummary starts a summary for a run of kind with a fresh run id.
func NewSummary(kind string, started time.Time) *Summary {
	return &Summary{
		RunID:   uuid.NewString(),
		Kind:    kind,
		Started: started,
	}
}

// Add appends an entry and returns s for chaining.
func (s *Summary) Add(name string, v float64) *Summary {
	s.Entries = append(s.Entries, Entry{Name: name, Value: v})
	return s
}

// Get returns the value of the first entry named name.
func (s *Summary) Get(name string) (float64, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return 0, false
}

// WriteCSV writes the summary as metric,value rows.
func (s *Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "value"}); err != nil {
		return err
	}
	for _, e := range s.Entries {
		if err := cw.Write([]string{e.Name, FormatFloat(e.Value)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// BuildParams describe a build run for performance_metrics.txt.
type BuildParams struct {
	Timestamp      time.Time
	Vectors        int
	Dim            int
	Space          string
	M              int
	EfConstruction int
	Threads        int
	LoadTime       time.Duration
	PreprocessTime time.Duration
	BuildTime      time.Duration
	TotalTime      time.Duration
	Throughput     float64
	Host           Host
}

// WritePerformance writes the human-readable build report.
func WritePerformance(w io.Writer, p BuildParams) error {
	_, err := fmt.Fprintf(w, `HNSW Build Metrics
==================
Timestamp: %s
Vectors: %d
Dimension: %d
Space: %s
M: %d
efConstruction: %d
Threads: %d
Host: %s

Timing:
  Load: %s s
  Preprocess: %s s
  Build: %s s
  Total: %s s

Performance:
  Throughput: %s vec/s
`,
		p.Timestamp.Format(time.DateTime),
		p.Vectors, p.Dim, p.Space, p.M, p.EfConstruction, p.Threads,
		p.Host,
		seconds(p.LoadTime), seconds(p.PreprocessTime), seconds(p.BuildTime), seconds(p.TotalTime),
		FormatFloat(p.Throughput),
	)
	return err
}

func seconds(d time.Duration) string {
	return FormatFloat(d.Seconds())
}
