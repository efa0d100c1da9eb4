package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/steveyegge/sentrylab/internal/bridge"
	"github.com/steveyegge/sentrylab/internal/config"
	"github.com/steveyegge/sentrylab/internal/gitlab"
	"github.com/steveyegge/sentrylab/internal/lockfile"
	"github.com/steveyegge/sentrylab/internal/sentry"
	"github.com/steveyegge/sentrylab/internal/state"
	"github.com/steveyegge/sentrylab/internal/telemetry"
)

// app holds everything one poller process needs.
type app struct {
	log      *slog.Logger
	location *time.Location
	store    state.Store
	lock     *lockfile.Lock
	syncer   *bridge.Syncer

	shutdownTelemetry telemetry.ShutdownFunc
}

// newApp validates s, takes the state lock, loads state and wires the
// Sentry and GitLab clients into a Syncer. A dry run neither locks nor
// writes the state.
func newApp(ctx context.Context, s *config.Settings, log *slog.Logger, dryRun bool) (*app, error) {
	if err := s.Validate(config.SectionSentry, config.SectionGitLab); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	loc, err := s.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule.timezone: %w", err)
	}

	shutdown, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName:  "sentrylab",
		Version:      Version,
		Enabled:      s.Telemetry.Enabled,
		Stdout:       s.Telemetry.Stdout,
		OTLPEndpoint: s.Telemetry.OTLPEndpoint,
	})
	if err != nil {
		log.Warn("telemetry init failed", "error", err)
	}

	a := &app{log: log, location: loc, shutdownTelemetry: shutdown}

	if s.State.Backend != state.BackendMemory && !dryRun {
		lock, err := lockfile.Acquire(s.State.Path, lockfile.LockInfo{Version: Version})
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("another sentrylab may be using %s: %w", s.State.Path, err)
		}
		a.lock = lock
	}

	store, err := state.Open(ctx, s.State.Backend, s.State.Path)
	if err != nil {
		log.Warn("could not load mirror state, starting empty",
			"op", "load",
			"backend", s.State.Backend,
			"path", s.State.Path,
			"error", err)
	}
	a.store = store
	log.Info("mirror state loaded",
		"op", "load",
		"backend", s.State.Backend,
		"path", s.State.Path,
		"records", store.Len())

	source := sentry.NewClient(s.Sentry.Token, s.Sentry.Org, s.Sentry.Project).
		WithBaseURL(s.Sentry.APIURL).
		WithQuery(s.Sentry.Query)

	a.syncer = bridge.NewSyncer(source, newGitLabClient(s, log), store, log, bridge.Options{
		Labels:   s.GitLab.Labels,
		Location: loc,
		DryRun:   dryRun,
	})
	return a, nil
}

func newGitLabClient(s *config.Settings, log *slog.Logger) *gitlab.Client {
	client := gitlab.NewClient(s.GitLab.Token, s.GitLab.APIURL, s.GitLab.ProjectID)
	if s.GitLab.InsecureSkipVerify {
		log.Warn("gitlab TLS certificate verification disabled", "url", s.GitLab.APIURL)
		client = client.WithInsecureTLS()
	}
	return client
}

// Close releases the store, the lock and telemetry exporters.
func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("close state store", "error", err)
		}
	}
	if err := a.lock.Release(); err != nil {
		a.log.Warn("release state lock", "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.shutdownTelemetry(ctx); err != nil {
		a.log.Warn("flush telemetry", "error", err)
	}
}
