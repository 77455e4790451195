package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"galileo/internal/domain"
)

// Compile-time interface check.
var _ ResultStore = (*SQLiteStore)(nil)

// SQLiteStore implements ResultStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs
// migrations, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS backtest_results (
			fingerprint TEXT PRIMARY KEY,
			run_date    TEXT NOT NULL,
			report      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_date ON backtest_results(run_date)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// GetResult returns the stored result for a fingerprint, or nil when absent.
func (s *SQLiteStore) GetResult(ctx context.Context, fingerprint string) (*CachedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		runDate string
		raw     []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT run_date, report FROM backtest_results WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&runDate, &raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query result: %w", err)
	}

	var report domain.PerformanceReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode cached report: %w", err)
	}
	return &CachedResult{
		Fingerprint: fingerprint,
		RunDate:     runDate,
		Report:      &report,
	}, nil
}

// PutResult inserts or replaces the stored result for a fingerprint.
func (s *SQLiteStore) PutResult(ctx context.Context, res *CachedResult) error {
	raw, err := json.Marshal(res.Report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO backtest_results (fingerprint, run_date, report)
		 VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			run_date = excluded.run_date,
			report   = excluded.report`,
		res.Fingerprint, res.RunDate, raw,
	)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}
