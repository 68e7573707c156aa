// Package history keeps a local ledger of extraction runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/KaramelBytes/bpsloom-cli/internal/utils"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	started_at TEXT NOT NULL,
	document   TEXT NOT NULL,
	url        TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT '',
	strategy   TEXT NOT NULL DEFAULT '',
	sheet      TEXT NOT NULL DEFAULT '',
	header_row INTEGER NOT NULL DEFAULT -1,
	row_count  INTEGER NOT NULL DEFAULT 0,
	dropped    INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started_at);`

// Run statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Run is one recorded extraction.
type Run struct {
	ID        string
	StartedAt time.Time
	Document  string
	URL       string
	Kind      string
	Strategy  string
	Sheet     string
	HeaderRow int
	Rows      int
	Dropped   int
	Status    string
	Error     string
}

// Store is an open ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path.
func Open(path string) (*Store, error) {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores r, assigning an id and start time when missing, and returns the id.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.Status == "" {
		r.Status = StatusOK
		if r.Error != "" {
			r.Status = StatusFailed
		}
	}
	const q = `INSERT INTO runs (id, started_at, document, url, kind, strategy, sheet, header_row, row_count, dropped, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, r.ID, r.StartedAt.UTC().Format(time.RFC3339Nano), r.Document, r.URL,
		r.Kind, r.Strategy, r.Sheet, r.HeaderRow, r.Rows, r.Dropped, r.Status, r.Error)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return r.ID, nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	if n <= 0 {
		n = 20
	}
	const q = `SELECT id, started_at, document, url, kind, strategy, sheet, header_row, row_count, dropped, status, error
		FROM runs ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()
	var out []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Document, &r.URL, &r.Kind, &r.Strategy, &r.Sheet,
			&r.HeaderRow, &r.Rows, &r.Dropped, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
			r.StartedAt = t
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
