package state

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() map[string]Record {
	return map[string]Record{
		"4512": {
			GitLabIssueID: 42,
			LastSeen:      time.Date(2024, 3, 2, 17, 45, 0, 123000000, time.UTC),
			LastProcessed: time.Date(2024, 3, 2, 18, 0, 1, 0, time.UTC),
		},
		"4513": {
			GitLabIssueID: 43,
			LastSeen:      time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC),
			LastProcessed: time.Date(2024, 3, 3, 9, 0, 5, 0, time.UTC),
		},
	}
}

func TestOpenJSONFile_Missing(t *testing.T) {
	s, err := OpenJSONFile(filepath.Join(t.TempDir(), "processed-issues.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	_, ok := s.Get("anything")
	assert.False(t, ok)
}

func TestJSONFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed-issues.json")
	ctx := context.Background()

	s, err := OpenJSONFile(path)
	require.NoError(t, err)
	for id, rec := range sampleRecords() {
		require.NoError(t, s.Put(ctx, id, rec))
	}

	reloaded, err := OpenJSONFile(path)
	require.NoError(t, err)

	got := reloaded.Snapshot()
	want := sampleRecords()
	require.Len(t, got, len(want))
	for id, w := range want {
		g, ok := got[id]
		require.True(t, ok, "missing record %s", id)
		assert.Equal(t, w.GitLabIssueID, g.GitLabIssueID)
		assert.True(t, w.LastSeen.Equal(g.LastSeen), "lastSeen %v != %v", g.LastSeen, w.LastSeen)
		assert.True(t, w.LastProcessed.Equal(g.LastProcessed), "lastProcessed %v != %v", g.LastProcessed, w.LastProcessed)
	}
}

func TestJSONFileStore_DocumentLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s, err := OpenJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "4512", sampleRecords()["4512"]))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)

	assert.True(t, strings.HasPrefix(text, "{\n  \"processedIssues\": {\n    \"4512\": {\n"), "not pretty-printed:\n%s", text)
	assert.Contains(t, text, `"gitlabIssueId": 42`)
	assert.Contains(t, text, `"lastSeen": "2024-03-02T17:45:00.123Z"`)
	assert.Contains(t, text, `"lastProcessed": "2024-03-02T18:00:01Z"`)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJSONFileStore_OverwritesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ctx := context.Background()
	s, err := OpenJSONFile(path)
	require.NoError(t, err)

	first := Record{GitLabIssueID: 1, LastSeen: time.Unix(100, 0).UTC(), LastProcessed: time.Unix(101, 0).UTC()}
	second := Record{GitLabIssueID: 2, LastSeen: time.Unix(200, 0).UTC(), LastProcessed: time.Unix(201, 0).UTC()}
	require.NoError(t, s.Put(ctx, "x", first))
	require.NoError(t, s.Put(ctx, "x", second))

	reloaded, err := OpenJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
	rec, ok := reloaded.Get("x")
	require.True(t, ok)
	assert.Equal(t, 2, rec.GitLabIssueID)
}

func TestOpenJSONFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := OpenJSONFile(path)
	require.Error(t, err)
	require.NotNil(t, s, "store must be usable even when load fails")
	assert.Equal(t, 0, s.Len())

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "load", perr.Op)
	assert.Equal(t, path, perr.Path)
}

func TestOpenJSONFile_EmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))

	s, err := OpenJSONFile(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(context.Background(), "1", Record{GitLabIssueID: 9}))
	assert.Equal(t, 1, s.Len())
}

func TestJSONFileStore_SaveFailureKeepsMemory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	// The parent "directory" is a regular file, so every save fails.
	s, err := OpenJSONFile(filepath.Join(blocker, "state.json"))
	require.Error(t, err) // reading through a file component fails too

	err = s.Put(context.Background(), "4512", sampleRecords()["4512"])
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr), "err = %v", err)
	assert.Equal(t, "save", perr.Op)

	rec, ok := s.Get("4512")
	require.True(t, ok, "in-memory mutation must survive a failed save")
	assert.Equal(t, 42, rec.GitLabIssueID)
}

func TestSnapshotIsCopy(t *testing.T) {
	s := NewMemoryStore(sampleRecords())
	snap := s.Snapshot()
	delete(snap, "4512")
	_, ok := s.Get("4512")
	assert.True(t, ok, "mutating a snapshot must not affect the store")
}
