// Package bridge mirrors Sentry issues into GitLab.
//
// A sync cycle fetches the current Sentry issue list, skips issues whose
// lastSeen has not advanced since they were last mirrored, and creates a
// GitLab issue for everything else.
package bridge

import (
	"github.com/steveyegge/sentrylab/internal/sentry"
	"github.com/steveyegge/sentrylab/internal/state"
)

// ShouldSkip reports whether issue is already mirrored with no newer activity.
//
// An issue with no record must be mirrored. An issue with a record is skipped
// unless its lastSeen is strictly after the recorded lastSeen; equal
// timestamps count as no new activity.
func ShouldSkip(issue sentry.Issue, store state.Store) bool {
	rec, ok := store.Get(issue.ID)
	if !ok {
		return false
	}
	return !issue.LastSeen.After(rec.LastSeen)
}
