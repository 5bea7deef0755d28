// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const dbFile = "reports.db"

// ErrNotFound is returned when a report is not in the index.
var ErrNotFound = errors.New("report not found")

// Store indexes generated report files in SQLite. It holds file metadata
// only; analysis content lives in the report files themselves.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates dir/reports.db.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating report directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, dbFile)+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// createdAtLayout is fixed width so created_at sorts chronologically as text.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			filename TEXT NOT NULL UNIQUE,
			format TEXT NOT NULL,
			drug_count INTEGER NOT NULL DEFAULT 0,
			main_condition TEXT,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record adds a generated report to the index.
func (s *Store) Record(ctx context.Context, r Report) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (id, filename, format, drug_count, main_condition, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.Filename, string(r.Format), r.DrugCount, r.MainCondition, r.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("recording report %s: %w", r.Filename, err)
	}
	return nil
}

// Lookup returns the report registered under filename.
func (s *Store) Lookup(ctx context.Context, filename string) (Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, format, drug_count, main_condition, created_at
		 FROM reports WHERE filename = ?`, filename)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Report{}, ErrNotFound
	}
	if err != nil {
		return Report{}, fmt.Errorf("looking up report %s: %w", filename, err)
	}
	return r, nil
}

// List returns up to limit reports, newest first. A non-positive limit
// returns all of them.
func (s *Store) List(ctx context.Context, limit int) ([]Report, error) {
	query := `SELECT id, filename, format, drug_count, main_condition, created_at
		FROM reports ORDER BY created_at DESC, filename DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var (
		r         Report
		format    string
		condition sql.NullString
		created   string
	)
	if err := row.Scan(&r.ID, &r.Filename, &format, &r.DrugCount, &condition, &created); err != nil {
		return Report{}, err
	}
	r.Format = Format(format)
	r.MainCondition = condition.String

	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Report{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	r.CreatedAt = t
	return r, nil
}
