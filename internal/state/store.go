// Package state records which Sentry issues have already been mirrored to GitLab.
//
// A Store is loaded once when the poller starts and is written through on every
// Put; it is never re-read while the process runs.
package state

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// Record is the mirror bookkeeping for one Sentry issue.
type Record struct {
	GitLabIssueID int       `json:"gitlabIssueId"` // project-scoped IID of the created issue
	LastSeen      time.Time `json:"lastSeen"`      // Sentry lastSeen at the time of mirroring
	LastProcessed time.Time `json:"lastProcessed"` // wall-clock time the mirror completed
}

// Store maps Sentry issue ids to their mirror records.
//
// Put always applies the change in memory before persisting. If persisting
// fails the returned error is a *PersistenceError and the in-memory record is
// kept, so the next successful Put writes it out.
type Store interface {
	Get(sourceID string) (Record, bool)
	Put(ctx context.Context, sourceID string, rec Record) error
	Snapshot() map[string]Record
	Len() int
	Close() error
}

// PersistenceError reports a failure to read or write durable state.
type PersistenceError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// MemoryStore is a Store that never touches disk.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore, optionally seeded with records.
func NewMemoryStore(seed map[string]Record) *MemoryStore {
	s := &MemoryStore{records: make(map[string]Record, len(seed))}
	maps.Copy(s.records, seed)
	return s
}

func (s *MemoryStore) Get(sourceID string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[sourceID]
	return rec, ok
}

func (s *MemoryStore) Put(_ context.Context, sourceID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[sourceID] = rec
	return nil
}

func (s *MemoryStore) Snapshot() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.records)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) Close() error { return nil }
