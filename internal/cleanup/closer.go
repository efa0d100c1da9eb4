package cleanup

import (
	"context"
	"log/slog"

	"github.com/steveyegge/sentrylab/internal/gitlab"
	"github.com/steveyegge/sentrylab/internal/remote"
)

// Closer closes one GitLab issue by project-scoped IID. *gitlab.Client satisfies it.
type Closer interface {
	CloseIssue(ctx context.Context, iid int) (*gitlab.Issue, error)
}

// Result summarizes a CloseAll run.
type Result struct {
	Attempted   int
	Closed      []int
	Failed      []int
	Interrupted bool
}

// CloseAll closes each id in order, one request at a time. A failed close is
// logged and counted; the run continues with the next id. Cancelling ctx stops
// before the next request.
func CloseAll(ctx context.Context, c Closer, ids []int, log *slog.Logger) Result {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	var res Result
	log.Info("closing gitlab issues", "op", "close", "count", len(ids))

	for _, iid := range ids {
		if err := ctx.Err(); err != nil {
			res.Interrupted = true
			log.Warn("close run interrupted", "op", "close", "remaining", len(ids)-res.Attempted, "error", err)
			break
		}
		res.Attempted++
		if _, err := c.CloseIssue(ctx, iid); err != nil {
			res.Failed = append(res.Failed, iid)
			log.Error("close gitlab issue failed",
				"op", "close",
				"gitlab_iid", iid,
				"status", remote.StatusOf(err),
				"message", remote.MessageOf(err),
				"error", err)
			continue
		}
		res.Closed = append(res.Closed, iid)
		log.Info("closed gitlab issue", "op", "close", "gitlab_iid", iid)
	}

	log.Info("close run finished",
		"op", "close",
		"attempted", res.Attempted,
		"closed", len(res.Closed),
		"failed", len(res.Failed))
	return res
}
