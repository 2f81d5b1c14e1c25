package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
)

// History appends run summaries to a DuckDB database so runs can be compared
// over time.
type History struct {
	db *sql.DB
}

// HistoryRow is one stored summary entry.
type HistoryRow struct {
	RunID   string
	Kind    string
	Started time.Time
	Metric  string
	Value   float64
}

const createRunsTable = `CREATE TABLE IF NOT EXISTS runs (
	run_id VARCHAR NOT NULL,
	kind VARCHAR NOT NULL,
	started_at TIMESTAMP NOT NULL,
	metric VARCHAR NOT NULL,
	value DOUBLE NOT NULL
)`

// OpenHistory opens (creating if needed) the history database at path. An
// empty path opens an in-memory database.
func OpenHistory(ctx context.Context, path string) (*History, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, createRunsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &History{db: db}, nil
}

// Append stores every entry of s in one transaction.
func (h *History) Append(ctx context.Context, s *Summary) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin history transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO runs (run_id, kind, started_at, metric, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range s.Entries {
		if _, err := stmt.ExecContext(ctx, s.RunID, s.Kind, s.Started.UTC(), e.Name, e.Value); err != nil {
			return fmt.Errorf("insert history row %s: %w", e.Name, err)
		}
	}
	return tx.Commit()
}

// Metric returns the values of metric for the most recent runs of kind,
// newest first.
func (h *History) Metric(ctx context.Context, kind, metric string, limit int) ([]HistoryRow, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT run_id, kind, started_at, metric, value FROM runs
		 WHERE kind = ? AND metric = ?
		 ORDER BY started_at DESC
		 LIMIT ?`, kind, metric, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		if err := rows.Scan(&r.RunID, &r.Kind, &r.Started, &r.Metric, &r.Value); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
