// Package history persists one row per executed check so past runs
// can be inspected after the fact.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Entry is one executed check within a run.
type Entry struct {
	RunID    string
	Check    string
	Method   string
	URL      string
	Status   int
	Attempts int
	Duration time.Duration
	Passed   bool
	Reason   string
	At       time.Time
}

// Store is a SQLite-backed history store.
type Store struct {
	db *sql.DB
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS check_results (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	check_name TEXT NOT NULL,
	method     TEXT NOT NULL,
	url        TEXT NOT NULL,
	status     INTEGER NOT NULL,
	attempts   INTEGER NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed     INTEGER NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_check_results_run ON check_results(run_id);
`

// Open creates (or opens) the history database at path and applies
// the schema. WAL mode allows concurrent reads while writing.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts one entry. A zero At defaults to now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO check_results
			(run_id, check_name, method, url, status, attempts, duration_ms, passed, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Check, e.Method, e.URL, e.Status, e.Attempts,
		e.Duration.Milliseconds(), boolToInt(e.Passed), e.Reason,
		at.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record check result: %w", err)
	}
	return nil
}

// ByRun returns all entries of one run, oldest first.
func (s *Store) ByRun(ctx context.Context, runID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, check_name, method, url, status, attempts, duration_ms, passed, reason, created_at
		FROM check_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			durationMs int64
			passed     int
			createdAt  string
		)
		if err := rows.Scan(&e.RunID, &e.Check, &e.Method, &e.URL, &e.Status,
			&e.Attempts, &durationMs, &passed, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan check result: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Passed = passed != 0
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
