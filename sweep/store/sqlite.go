package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/variant-sim/variant-sim/sweep"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite is a durable configuration store backed by modernc.org/sqlite.
// Get-or-insert runs inside an immediate transaction, so the tuple-unique
// index makes "identical tuple, identical id" hold under concurrent callers.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and migrates) a store at path. ":memory:" works for tests.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "variant-sim.db"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc.org/sqlite serializes through a single connection; more would
	// trip SQLITE_BUSY under write contention.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS config_rows (
		location TEXT NOT NULL,
		id INTEGER NOT NULL,
		tuple TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (location, id),
		UNIQUE (location, tuple)
	)`); err != nil {
		return nil, fmt.Errorf("create config_rows table: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS design_audit (
		run_id TEXT NOT NULL,
		matrix INTEGER NOT NULL,
		row INTEGER NOT NULL,
		cdfs TEXT NOT NULL,
		ids TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create design_audit table: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// Seed inserts a reference row with the given columns and returns its id.
func (s *SQLite) Seed(ctx context.Context, loc sweep.Location, columns map[string]any) (int64, error) {
	return s.getOrInsertTuple(ctx, loc, columns)
}

// GetOrInsert implements sweep.Store.
func (s *SQLite) GetOrInsert(ctx context.Context, loc sweep.Location, baseID int64, varied map[string]any) (int64, error) {
	base, err := s.loadRow(ctx, loc, baseID)
	if err != nil {
		return 0, err
	}
	return s.getOrInsertTuple(ctx, loc, mergeColumns(base, varied))
}

func (s *SQLite) getOrInsertTuple(ctx context.Context, loc sweep.Location, columns map[string]any) (int64, error) {
	tuple, err := canonicalTuple(columns)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(columns)
	if err != nil {
		return 0, fmt.Errorf("encoding row payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM config_rows WHERE location = ? AND tuple = ?`, string(loc), tuple).Scan(&id)
	switch {
	case err == nil:
		return id, tx.Commit()
	case errors.Is(err, sql.ErrNoRows):
	default:
		return 0, fmt.Errorf("select row: %w", err)
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO config_rows (location, id, tuple, payload)
		 VALUES (?, (SELECT COALESCE(MAX(id), -1) + 1 FROM config_rows WHERE location = ?), ?, ?)
		 ON CONFLICT (location, tuple) DO UPDATE SET tuple = tuple
		 RETURNING id`,
		string(loc), string(loc), tuple, payload).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

func (s *SQLite) loadRow(ctx context.Context, loc sweep.Location, id int64) (map[string]any, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM config_rows WHERE location = ? AND id = ?`, string(loc), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no reference row %d at %s", sweep.ErrLookup, id, loc)
	}
	if err != nil {
		return nil, fmt.Errorf("select reference row: %w", err)
	}
	var columns map[string]any
	if err := json.Unmarshal(payload, &columns); err != nil {
		return nil, fmt.Errorf("decoding row payload: %w", err)
	}
	return columns, nil
}

// ReferenceValue implements sweep.Store.
func (s *SQLite) ReferenceValue(ctx context.Context, loc sweep.Location, id int64, column string) (any, error) {
	row, err := s.loadRow(ctx, loc, id)
	if err != nil {
		return nil, err
	}
	v, ok := row[column]
	if !ok {
		return nil, fmt.Errorf("%w: row %d at %s has no column %s", sweep.ErrLookup, id, loc, column)
	}
	return v, nil
}

// RecordAudit implements sweep.AuditSink.
func (s *SQLite) RecordAudit(ctx context.Context, runID string, rows []sweep.AuditRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO design_audit (run_id, matrix, row, cdfs, ids) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare audit insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, row := range rows {
		cdfs, err := json.Marshal(row.CDFs)
		if err != nil {
			return fmt.Errorf("encoding audit cdfs: %w", err)
		}
		ids, err := json.Marshal(row.IDs)
		if err != nil {
			return fmt.Errorf("encoding audit ids: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, row.Matrix, row.Row, cdfs, ids); err != nil {
			return fmt.Errorf("insert audit row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit audit: %w", err)
	}
	return nil
}

// AuditCount returns the number of recorded audit rows for a run.
func (s *SQLite) AuditCount(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM design_audit WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count audit rows: %w", err)
	}
	return n, nil
}

var (
	_ sweep.Store     = (*SQLite)(nil)
	_ sweep.AuditSink = (*SQLite)(nil)
)
