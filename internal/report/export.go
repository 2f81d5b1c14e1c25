package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/23skdu/hnswbench/internal/errors"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
)

// Format selects the encoding of the per-query results file.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatArrow   Format = "arrow"
)

// ParseFormat parses an export format name. The empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatCSV, "":
		return FormatCSV, nil
	case FormatParquet:
		return FormatParquet, nil
	case FormatArrow, "ipc":
		return FormatArrow, nil
	default:
		return "", errors.NewInvalidArgument("parse_export_format", fmt.Sprintf("unknown export format %q", s))
	}
}

// FileName returns the per-query results file name for f.
func (f Format) FileName() string {
	return QueryResultsBase + "." + string(f)
}

// QueryRow is one per-query result as stored in Parquet.
type QueryRow struct {
	QueryID   uint64  `parquet:"query_id"`
	LatencyMs float64 `parquet:"latency_ms"`
}

// QueryResultsSchema is the Arrow schema of per-query results.
var QueryResultsSchema = arrow.NewSchema([]arrow.Field{
	{Name: "query_id", Type: arrow.PrimitiveTypes.Uint64},
	{Name: "latency_ms", Type: arrow.PrimitiveTypes.Float64},
}, nil)

// QueryResultsRecord builds an Arrow record of per-query results. The caller
// must Release it.
func QueryResultsRecord(mem memory.Allocator, ids []uint64, latenciesMs []float64) (arrow.Record, error) {
	if len(ids) != len(latenciesMs) {
		return nil, fmt.Errorf("%d ids for %d latencies", len(ids), len(latenciesMs))
	}
	b := array.NewRecordBuilder(mem, QueryResultsSchema)
	defer b.Release()

	b.Field(0).(*array.Uint64Builder).AppendValues(ids, nil)
	b.Field(1).(*array.Float64Builder).AppendValues(latenciesMs, nil)
	return b.NewRecord(), nil
}

// WriteArrow writes rec as an Arrow IPC file.
func WriteArrow(w io.Writer, mem memory.Allocator, rec arrow.Record) error {
	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("arrow write: %w", err)
	}
	return fw.Close()
}

// WriteParquet writes the rows of a per-query results record as a
// zstd-compressed Parquet file.
func WriteParquet(w io.Writer, rec arrow.Record) error {
	ids, ok := rec.Column(0).(*array.Uint64)
	if !ok {
		return fmt.Errorf("query_id column has type %s", rec.Column(0).DataType())
	}
	lat, ok := rec.Column(1).(*array.Float64)
	if !ok {
		return fmt.Errorf("latency_ms column has type %s", rec.Column(1).DataType())
	}

	rows := make([]QueryRow, rec.NumRows())
	for i := range rows {
		rows[i] = QueryRow{QueryID: ids.Value(i), LatencyMs: lat.Value(i)}
	}

	pw := parquet.NewGenericWriter[QueryRow](w, parquet.Compression(&parquet.Zstd))
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("parquet write: %w", err)
	}
	return pw.Close()
}

// ExportQueryResults writes per-query results to path in format f.
func ExportQueryResults(path string, f Format, ids []uint64, latenciesMs []float64) error {
	if f == FormatCSV {
		return SaveFile(path, func(w io.Writer) error {
			return WriteQueryCSV(w, ids, latenciesMs)
		})
	}

	mem := memory.NewGoAllocator()
	rec, err := QueryResultsRecord(mem, ids, latenciesMs)
	if err != nil {
		return err
	}
	defer rec.Release()

	return SaveFile(path, func(w io.Writer) error {
		switch f {
		case FormatParquet:
			return WriteParquet(w, rec)
		case FormatArrow:
			return WriteArrow(w, mem, rec)
		default:
			return fmt.Errorf("unsupported export format %q", f)
		}
	})
}
