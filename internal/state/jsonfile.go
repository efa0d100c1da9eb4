package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// fileDocument is the on-disk layout of the JSON state file.
type fileDocument struct {
	ProcessedIssues map[string]Record `json:"processedIssues"`
}

// JSONFileStore keeps the mapping in memory and rewrites the whole JSON
// document after every Put.
type JSONFileStore struct {
	path string

	mu      sync.Mutex
	records map[string]Record
}

// OpenJSONFile loads the state file at path.
//
// The returned store is always usable. A missing file yields an empty store
// and a nil error. An unreadable or corrupt file yields an empty store and a
// *PersistenceError so the caller can log that prior state was discarded.
func OpenJSONFile(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{path: path, records: make(map[string]Record)}

	data, err := os.ReadFile(path) // #nosec G304 -- operator-configured state path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, &PersistenceError{Op: "load", Path: path, Err: err}
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return s, &PersistenceError{Op: "load", Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	if doc.ProcessedIssues != nil {
		s.records = doc.ProcessedIssues
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *JSONFileStore) Path() string { return s.path }

func (s *JSONFileStore) Get(sourceID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	return rec, ok
}

// Put records rec in memory, then rewrites the state file.
func (s *JSONFileStore) Put(_ context.Context, sourceID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[sourceID] = rec
	return s.saveLocked()
}

func (s *JSONFileStore) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

func (s *JSONFileStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *JSONFileStore) Close() error { return nil }

// saveLocked writes the full document to a temp file in the same directory
// and renames it over the target. Caller must hold s.mu.
func (s *JSONFileStore) saveLocked() error {
	data, err := json.MarshalIndent(fileDocument{ProcessedIssues: s.records}, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return &PersistenceError{Op: "save", Path: s.path, Err: err}
	}
	return nil
}
