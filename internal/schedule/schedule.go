// Package schedule fires a job at fixed wall-clock times of day.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// OverlapPolicy controls what happens when a trigger fires while a job is
// still running.
type OverlapPolicy string

const (
	// OverlapSkip drops the trigger and logs it.
	OverlapSkip OverlapPolicy = "skip"
	// OverlapAllow runs the job concurrently with the one in flight.
	OverlapAllow OverlapPolicy = "allow"
)

// ParseOverlapPolicy accepts "skip" or "allow". Empty means OverlapSkip.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverlapSkip:
		return OverlapSkip, nil
	case OverlapAllow:
		return OverlapAllow, nil
	}
	return "", fmt.Errorf("invalid overlap policy %q (want skip or allow)", s)
}

// DefaultTimes are the daily trigger times used when none are configured.
var DefaultTimes = []string{"09:00", "12:00", "18:00"}

// TimeOfDay is an hour and minute on the 24-hour clock.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour; "9:05" is accepted).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q (want HH:MM)", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid minute in %q", s)
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// ParseTimes parses each entry with ParseTimeOfDay. Repeated times are kept:
// each becomes its own slot and the overlap policy decides whether both run.
func ParseTimes(list []string) ([]TimeOfDay, error) {
	out := make([]TimeOfDay, 0, len(list))
	for _, s := range list {
		t, err := ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Next returns the first occurrence of t in loc strictly after from.
func (t TimeOfDay) Next(from time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	local := from.In(loc)
	y, m, d := local.Date()
	next := time.Date(y, m, d, t.Hour, t.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(y, m, d+1, t.Hour, t.Minute, 0, 0, loc)
	}
	return next
}

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Config describes when a Scheduler fires.
type Config struct {
	Times      []TimeOfDay
	Location   *time.Location // nil means time.Local
	Overlap    OverlapPolicy  // empty means OverlapSkip
	RunAtStart bool

	// Now and After replace the wall clock in tests.
	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// Scheduler runs a Job at each configured time of day until its context ends.
type Scheduler struct {
	cfg     Config
	job     Job
	log     *slog.Logger
	running atomic.Int32
}

// New creates a Scheduler. A nil logger discards output.
func New(cfg Config, job Job, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Overlap == "" {
		cfg.Overlap = OverlapSkip
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.After == nil {
		cfg.After = time.After
	}
	return &Scheduler{cfg: cfg, job: job, log: log}
}

// Run blocks until ctx is cancelled. Each time of day gets its own goroutine;
// the startup trigger, if enabled, fires once alongside them.
func (s *Scheduler) Run(ctx context.Context) error {
	times := make([]string, len(s.cfg.Times))
	for i, t := range s.cfg.Times {
		times[i] = t.String()
	}
	s.log.Info("scheduler started",
		"op", "schedule",
		"times", times,
		"location", s.cfg.Location.String(),
		"overlap", string(s.cfg.Overlap))

	g, ctx := errgroup.WithContext(ctx)
	if s.cfg.RunAtStart {
		g.Go(func() error {
			s.fire(ctx, "startup")
			return nil
		})
	}
	for _, t := range s.cfg.Times {
		g.Go(func() error {
			return s.slot(ctx, t)
		})
	}
	err := g.Wait()
	s.log.Info("scheduler stopped", "op", "schedule")
	return err
}

// slot fires t once per day. The next occurrence is computed from the later
// of now and the last fired occurrence, so a wall clock stepping backward
// cannot fire the same occurrence twice.
func (s *Scheduler) slot(ctx context.Context, t TimeOfDay) error {
	var last time.Time
	for {
		now := s.cfg.Now()
		from := now
		if from.Before(last) {
			from = last
		}
		next := t.Next(from, s.cfg.Location)
		s.log.Debug("next trigger", "op", "schedule", "slot", t.String(), "at", next)
		select {
		case <-ctx.Done():
			return nil
		case <-s.cfg.After(next.Sub(now)):
			last = next
			s.fire(ctx, t.String())
		}
	}
}

// fire runs the job once under the overlap policy. It reports whether the job ran.
func (s *Scheduler) fire(ctx context.Context, slot string) bool {
	if ctx.Err() != nil {
		return false
	}
	if n := s.running.Add(1); n > 1 && s.cfg.Overlap == OverlapSkip {
		s.running.Add(-1)
		s.log.Warn("previous sync cycle still running, skipping trigger", "op", "schedule", "slot", slot)
		return false
	}
	defer s.running.Add(-1)

	s.log.Debug("trigger fired", "op", "schedule", "slot", slot)
	if err := s.runJob(ctx); err != nil {
		s.log.Error("scheduled job failed", "op", "schedule", "slot", slot, "error", err)
	}
	return true
}

func (s *Scheduler) runJob(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return s.job(ctx)
}
