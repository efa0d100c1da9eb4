package state

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS mirror_records (
	source_id       TEXT PRIMARY KEY,
	gitlab_issue_id INTEGER NOT NULL,
	last_seen       TEXT NOT NULL,
	last_processed  TEXT NOT NULL
)`

// SQLiteStore keeps the mapping in a SQLite table. All rows are read at open;
// each Put upserts a single row.
type SQLiteStore struct {
	db   *sql.DB
	path string

	mu      sync.Mutex
	records map[string]Record
}

// OpenSQLite opens (or creates) the SQLite database at path and loads every
// mirror record into memory. Use ":memory:" for an in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("open sqlite: %w", err)}
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", sqliteSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("exec %q: %w", stmt, err)}
		}
	}

	s := &SQLiteStore{db: db, path: path, records: make(map[string]Record)}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, &PersistenceError{Op: "load", Path: path, Err: err}
	}
	return s, nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_id, gitlab_issue_id, last_seen, last_processed FROM mirror_records`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                      string
			iid                     int
			lastSeen, lastProcessed string
		)
		if err := rows.Scan(&id, &iid, &lastSeen, &lastProcessed); err != nil {
			return err
		}
		rec := Record{GitLabIssueID: iid}
		if rec.LastSeen, err = time.Parse(time.RFC3339Nano, lastSeen); err != nil {
			return fmt.Errorf("record %s: last_seen: %w", id, err)
		}
		if rec.LastProcessed, err = time.Parse(time.RFC3339Nano, lastProcessed); err != nil {
			return fmt.Errorf("record %s: last_processed: %w", id, err)
		}
		s.records[id] = rec
	}
	return rows.Err()
}

func (s *SQLiteStore) Get(sourceID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	return rec, ok
}

// Put records rec in memory, then upserts its row.
func (s *SQLiteStore) Put(ctx context.Context, sourceID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sourceID] = rec
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO mirror_records (source_id, gitlab_issue_id, last_seen, last_processed)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
			gitlab_issue_id = excluded.gitlab_issue_id,
			last_seen = excluded.last_seen,
			last_processed = excluded.last_processed`,
		sourceID, rec.GitLabIssueID,
		rec.LastSeen.UTC().Format(time.RFC3339Nano),
		rec.LastProcessed.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}

func (s *SQLiteStore) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

func (s *SQLiteStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
