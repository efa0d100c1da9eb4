// Package telemetry wires OpenTelemetry tracing and metrics for sentrylab.
//
// Telemetry is off unless telemetry.enabled is set. When off, Init installs
// no-op providers and every span and instrument costs nothing.
//
// Exporters, each switched by configuration:
//
//	telemetry.stdout         pretty-printed spans and metrics on stdout
//	telemetry.otlp_endpoint  OTLP/HTTP metrics (host:port or URL)
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/steveyegge/sentrylab"

// BridgeScope is the instrumentation scope of the sync cycle.
const BridgeScope = instrumentationScope + "/bridge"

// Intervals between metric exports.
const (
	stdoutInterval = 15 * time.Second
	otlpInterval   = 30 * time.Second
)

// Options select what Init installs.
type Options struct {
	ServiceName  string
	Version      string
	Enabled      bool
	Stdout       bool
	OTLPEndpoint string
}

// ShutdownFunc flushes and stops the providers installed by Init.
type ShutdownFunc func(context.Context) error

// Init installs global tracer and meter providers according to opts and
// returns the function that flushes them. The returned ShutdownFunc is never
// nil.
func Init(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if !opts.Enabled {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return noShutdown, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(opts.ServiceName),
			semconv.ServiceVersionKey.String(opts.Version),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return noShutdown, fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := newTracerProvider(res, opts)
	if err != nil {
		return noShutdown, fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, res, opts)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return noShutdown, fmt.Errorf("telemetry: metric provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}

func noShutdown(context.Context) error { return nil }

// newTracerProvider samples every cycle span. Spans only leave the process
// through the stdout exporter.
func newTracerProvider(res *resource.Resource, opts Options) (*sdktrace.TracerProvider, error) {
	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if opts.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(tpOpts...), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource, opts Options) (*sdkmetric.MeterProvider, error) {
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if opts.Stdout {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(stdoutInterval))))
	}
	if opts.OTLPEndpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, opts.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		mpOpts = append(mpOpts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(otlpInterval))))
	}
	return sdkmetric.NewMeterProvider(mpOpts...), nil
}

// Tracer returns a tracer for scope, or for the sentrylab scope when empty.
func Tracer(scope string) trace.Tracer {
	if scope == "" {
		scope = instrumentationScope
	}
	return otel.Tracer(scope)
}

// Meter returns a meter for scope, or for the sentrylab scope when empty.
func Meter(scope string) metric.Meter {
	if scope == "" {
		scope = instrumentationScope
	}
	return otel.Meter(scope)
}
