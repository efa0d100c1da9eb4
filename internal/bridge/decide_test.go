package bridge

import (
	"testing"
	"time"

	"github.com/steveyegge/sentrylab/internal/sentry"
	"github.com/steveyegge/sentrylab/internal/state"
)

func TestShouldSkip(t *testing.T) {
	recorded := time.Date(2024, 3, 2, 17, 45, 0, 0, time.UTC)
	store := state.NewMemoryStore(map[string]state.Record{
		"seen": {GitLabIssueID: 42, LastSeen: recorded},
	})

	tests := []struct {
		name     string
		issue    sentry.Issue
		wantSkip bool
	}{
		{"never seen", sentry.Issue{ID: "new", LastSeen: recorded}, false},
		{"never seen zero time", sentry.Issue{ID: "new"}, false},
		{"equal lastSeen", sentry.Issue{ID: "seen", LastSeen: recorded}, true},
		{"equal instant other zone", sentry.Issue{ID: "seen", LastSeen: recorded.In(time.FixedZone("X", 3600))}, true},
		{"older lastSeen", sentry.Issue{ID: "seen", LastSeen: recorded.Add(-time.Minute)}, true},
		{"newer lastSeen", sentry.Issue{ID: "seen", LastSeen: recorded.Add(time.Millisecond)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSkip(tt.issue, store); got != tt.wantSkip {
				t.Errorf("ShouldSkip() = %v, want %v", got, tt.wantSkip)
			}
		})
	}
}
