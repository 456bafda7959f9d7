// Package history records every top-level docsnap operation in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docsnap/internal/history/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Operation statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Operation is one recorded run.
type Operation struct {
	ID         int64
	RunID      string
	Name       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     string
	Detail     string
	Documents  int
}

// Duration returns how long the operation ran, or zero while it is running.
func (o Operation) Duration() time.Duration {
	if o.FinishedAt == nil {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Store persists operations.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path and brings
// its schema up to date. path may be ":memory:".
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Start records a running operation and returns its id.
func (s *Store) Start(ctx context.Context, runID, name string, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (run_id, operation, started_at, status) VALUES (?, ?, ?, ?)`,
		runID, name, formatTime(at), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("recording %s start: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("recording %s start: %w", name, err)
	}
	return id, nil
}

// Finish closes a running operation.
func (s *Store) Finish(ctx context.Context, id int64, status, detail string, documents int, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE operations SET finished_at = ?, status = ?, detail = ?, documents = ? WHERE id = ?`,
		formatTime(at), status, detail, documents, id)
	if err != nil {
		return fmt.Errorf("recording operation %d finish: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation %d not found", id)
	}
	return nil
}

// List returns the most recent operations, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, operation, started_at, finished_at, status, detail, documents
		 FROM operations ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []Operation
	for rows.Next() {
		var (
			op       Operation
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&op.ID, &op.RunID, &op.Name, &started, &finished, &op.Status, &op.Detail, &op.Documents); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if op.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, err
			}
			op.FinishedAt = &t
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored time %q: %w", s, err)
	}
	return t, nil
}
