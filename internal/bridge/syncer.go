package bridge

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/sentrylab/internal/gitlab"
	"github.com/steveyegge/sentrylab/internal/remote"
	"github.com/steveyegge/sentrylab/internal/sentry"
	"github.com/steveyegge/sentrylab/internal/state"
	"github.com/steveyegge/sentrylab/internal/telemetry"
)

// Source lists the current Sentry issues. *sentry.Client satisfies it.
type Source interface {
	FetchIssues(ctx context.Context) ([]sentry.Issue, error)
}

// Sink creates tracker issues. *gitlab.Client satisfies it.
type Sink interface {
	CreateIssue(ctx context.Context, title, description string, labels []string) (*gitlab.Issue, error)
}

// Options tune a Syncer. The zero value is usable.
type Options struct {
	Labels   []string         // labels for created issues; nil means DefaultLabels
	Location *time.Location   // zone for description timestamps; nil means local
	DryRun   bool             // log what would be created without touching GitLab or the store
	Now      func() time.Time // clock for lastProcessed; nil means time.Now
}

// CycleStats summarizes one sync cycle.
type CycleStats struct {
	RunID           string
	Fetched         int
	Mirrored        int
	Planned         int // dry-run only
	Skipped         int
	Failed          int
	PersistFailures int
	FetchFailed     bool
	Interrupted     bool
	Duration        time.Duration
}

// Syncer runs sync cycles from a Source into a Sink, recording progress in a Store.
type Syncer struct {
	source Source
	sink   Sink
	store  state.Store
	log    *slog.Logger
	opts   Options

	tracer  trace.Tracer
	metrics *telemetry.CycleMetrics
}

// NewSyncer creates a Syncer. A nil logger discards output.
func NewSyncer(source Source, sink Sink, store state.Store, log *slog.Logger, opts Options) *Syncer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if opts.Labels == nil {
		opts.Labels = slices.Clone(DefaultLabels)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Syncer{
		source:  source,
		sink:    sink,
		store:   store,
		log:     log,
		opts:    opts,
		tracer:  telemetry.Tracer(telemetry.BridgeScope),
		metrics: telemetry.NewCycleMetrics(),
	}
}

// RunCycle performs one fetch-decide-mirror pass over the current Sentry issues.
//
// Failures never escape: a failed fetch ends the cycle with the store
// untouched, and a failed create or persist is logged before moving on to the
// next issue.
func (s *Syncer) RunCycle(ctx context.Context) CycleStats {
	start := time.Now()
	stats := CycleStats{RunID: uuid.NewString()}
	log := s.log.With("run_id", stats.RunID)

	ctx, span := s.tracer.Start(ctx, "bridge.cycle",
		trace.WithAttributes(attribute.String("run_id", stats.RunID)))
	defer span.End()

	log.Info("sync cycle started", "dry_run", s.opts.DryRun)

	issues, err := s.source.FetchIssues(ctx)
	if err != nil {
		stats.FetchFailed = true
		stats.Duration = time.Since(start)
		log.Error("fetch sentry issues failed",
			"op", "fetch",
			"status", remote.StatusOf(err),
			"error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		s.metrics.Record(ctx, stats.asMetrics())
		return stats
	}
	stats.Fetched = len(issues)
	log.Debug("fetched sentry issues", "op", "fetch", "count", len(issues))

	for _, issue := range issues {
		if ctx.Err() != nil {
			stats.Interrupted = true
			log.Warn("sync cycle interrupted", "error", ctx.Err())
			break
		}
		s.mirror(ctx, log, issue, &stats)
	}

	stats.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("issues.fetched", stats.Fetched),
		attribute.Int("issues.mirrored", stats.Mirrored),
		attribute.Int("issues.failed", stats.Failed),
	)
	s.metrics.Record(ctx, stats.asMetrics())
	log.Info("sync cycle finished",
		"fetched", stats.Fetched,
		"mirrored", stats.Mirrored,
		"planned", stats.Planned,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"persist_failures", stats.PersistFailures,
		"duration", stats.Duration)
	return stats
}

// mirror handles a single issue: skip, create, then record.
func (s *Syncer) mirror(ctx context.Context, log *slog.Logger, issue sentry.Issue, stats *CycleStats) {
	if ShouldSkip(issue, s.store) {
		stats.Skipped++
		log.Debug("issue unchanged since last mirror, skipping",
			"op", "skip",
			"issue_id", issue.ID,
			"last_seen", issue.LastSeen)
		return
	}

	title := FormatTitle(issue)
	description := FormatDescription(issue, s.opts.Location)

	if s.opts.DryRun {
		stats.Planned++
		log.Info("dry run: would create gitlab issue",
			"op", "create",
			"issue_id", issue.ID,
			"title", title,
			"labels", s.opts.Labels)
		return
	}

	created, err := s.sink.CreateIssue(ctx, title, description, s.opts.Labels)
	if err != nil {
		stats.Failed++
		log.Error("create gitlab issue failed",
			"op", "create",
			"issue_id", issue.ID,
			"status", remote.StatusOf(err),
			"message", remote.MessageOf(err),
			"error", err)
		return
	}
	stats.Mirrored++
	log.Info("mirrored sentry issue",
		"op", "create",
		"issue_id", issue.ID,
		"gitlab_iid", created.IID,
		"title", title)

	rec := state.Record{
		GitLabIssueID: created.IID,
		LastSeen:      issue.LastSeen,
		LastProcessed: s.opts.Now(),
	}
	if err := s.store.Put(ctx, issue.ID, rec); err != nil {
		stats.PersistFailures++
		log.Warn("persist mirror state failed",
			"op", "persist",
			"issue_id", issue.ID,
			"gitlab_iid", created.IID,
			"error", err)
	}
}

func (c CycleStats) asMetrics() telemetry.CycleResult {
	return telemetry.CycleResult{
		Fetched:         c.Fetched,
		Mirrored:        c.Mirrored,
		Skipped:         c.Skipped,
		Failed:          c.Failed,
		PersistFailures: c.PersistFailures,
		FetchFailed:     c.FetchFailed,
		Duration:        c.Duration,
	}
}
