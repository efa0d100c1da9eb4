package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CycleResult is the subset of a sync cycle outcome that is exported as metrics.
type CycleResult struct {
	Fetched         int
	Mirrored        int
	Skipped         int
	Failed          int
	PersistFailures int
	FetchFailed     bool
	Duration        time.Duration
}

// CycleMetrics holds the instruments recorded once per sync cycle.
// With telemetry disabled the global meter is a no-op and recording is free.
type CycleMetrics struct {
	cycles   metric.Int64Counter
	issues   metric.Int64Counter
	duration metric.Float64Histogram
}

// NewCycleMetrics creates the sync cycle instruments on the bridge meter.
func NewCycleMetrics() *CycleMetrics {
	m := Meter(BridgeScope)
	cycles, _ := m.Int64Counter("sentrylab.cycle.runs",
		metric.WithDescription("Sync cycles executed, by outcome"),
	)
	issues, _ := m.Int64Counter("sentrylab.cycle.issues",
		metric.WithDescription("Sentry issues handled by sync cycles, by result"),
	)
	duration, _ := m.Float64Histogram("sentrylab.cycle.duration",
		metric.WithDescription("Sync cycle duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return &CycleMetrics{cycles: cycles, issues: issues, duration: duration}
}

// Record adds one cycle's outcome to the instruments.
func (m *CycleMetrics) Record(ctx context.Context, r CycleResult) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case r.FetchFailed:
		outcome = "fetch_failed"
	case r.Failed > 0 || r.PersistFailures > 0:
		outcome = "partial"
	}
	m.cycles.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	for result, n := range map[string]int{
		"mirrored":       r.Mirrored,
		"skipped":        r.Skipped,
		"failed":         r.Failed,
		"persist_failed": r.PersistFailures,
	} {
		if n > 0 {
			m.issues.Add(ctx, int64(n), metric.WithAttributes(attribute.String("result", result)))
		}
	}
	m.duration.Record(ctx, float64(r.Duration.Milliseconds()))
}
