// Package status persists per-file and per-function processing state so an
// interrupted run can resume where it left off.
package status

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// State is a persisted processing state.
type State string

const (
	Pending State = "PENDING"
	Done    State = "DONE"
	Failed  State = "FAILED"
	Skipped State = "SKIPPED"
)

// FileState tracks a file through the orchestrator's state machine.
type FileState string

const (
	FileDiscovered  FileState = "DISCOVERED"
	FileAnalyzing   FileState = "ANALYZING"
	FileDocumenting FileState = "DOCUMENTING"
	FileApplying    FileState = "APPLYING"
	FileSkipped     FileState = "SKIPPED"
	FileFailed      FileState = "FAILED"
	FileDone        FileState = "DONE"
)

// Terminal reports whether a file state needs no further processing on resume.
func (s FileState) Terminal() bool {
	return s == FileDone
}

// Entry is one persisted function status keyed by file path and function
// identity. Identity includes the normalized parameter signature so
// overloads do not collide.
type Entry struct {
	Path      string
	Function  string
	State     State
	Detail    string
	UpdatedAt time.Time
}

// Store is an append-style status store on SQLite with last-writer-wins
// upsert semantics. Every transition is durable once Upsert returns.
type Store struct {
	db *sql.DB
}

// Open opens or creates the store at the provided path and ensures the
// schema is available.
func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping status store: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS functions (
    file_path TEXT NOT NULL,
    function_id TEXT NOT NULL,
    state TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (file_path, function_id)
);
CREATE TABLE IF NOT EXISTS files (
    file_path TEXT NOT NULL PRIMARY KEY,
    state TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_functions_file_path ON functions(file_path);
`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert records a function transition, replacing any previous state for
// the same (file, function identity) key.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	const query = `
INSERT INTO functions(file_path, function_id, state, detail, updated_at)
VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(file_path, function_id)
DO UPDATE SET state = excluded.state, detail = excluded.detail, updated_at = excluded.updated_at
`
	if _, err := s.db.ExecContext(ctx, query, entry.Path, entry.Function, string(entry.State), entry.Detail); err != nil {
		return fmt.Errorf("upsert status %s %s: %w", entry.Path, entry.Function, err)
	}
	return nil
}

// UpsertFile records a file-level state transition.
func (s *Store) UpsertFile(ctx context.Context, path string, state FileState) error {
	const query = `
INSERT INTO files(file_path, state, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(file_path)
DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
`
	if _, err := s.db.ExecContext(ctx, query, path, string(state)); err != nil {
		return fmt.Errorf("upsert file status %s: %w", path, err)
	}
	return nil
}

// FileStates scans every persisted file state, used at start-up to resume.
func (s *Store) FileStates(ctx context.Context) (map[string]FileState, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, state FROM files`)
	if err != nil {
		return nil, fmt.Errorf("scan file states: %w", err)
	}
	defer rows.Close()

	states := map[string]FileState{}
	for rows.Next() {
		var path, state string
		if err := rows.Scan(&path, &state); err != nil {
			return nil, fmt.Errorf("scan file state row: %w", err)
		}
		states[path] = FileState(state)
	}
	return states, rows.Err()
}

// Scan returns every persisted function entry.
func (s *Store) Scan(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, function_id, state, detail, updated_at FROM functions ORDER BY file_path, function_id`)
	if err != nil {
		return nil, fmt.Errorf("scan status entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var state string
		if err := rows.Scan(&entry.Path, &entry.Function, &state, &entry.Detail, &entry.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan status row: %w", err)
		}
		entry.State = State(state)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Get returns the entry for one (file, function identity) key.
func (s *Store) Get(ctx context.Context, path, function string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT file_path, function_id, state, detail, updated_at FROM functions WHERE file_path = ? AND function_id = ?`, path, function)
	var entry Entry
	var state string
	if err := row.Scan(&entry.Path, &entry.Function, &state, &entry.Detail, &entry.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get status %s %s: %w", path, function, err)
	}
	entry.State = State(state)
	return &entry, nil
}
