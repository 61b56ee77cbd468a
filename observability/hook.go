// Package observability provides an OpenTelemetry-based metrics hook for
// the action pipeline. The MetricsHook implements lifecycle hook
// interfaces to record pipeline-wide counters for dispatch, handler
// failure, and guard suppression events.
//
// For per-invocation tracing and metrics, see the middleware package:
// middleware.Tracing() and middleware.Metrics().
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mineclover/context-action-sub008/handler"
	"github.com/mineclover/context-action-sub008/hook"
	"github.com/mineclover/context-action-sub008/id"
)

const meterName = "github.com/mineclover/context-action-sub008/observability"

// Compile-time interface checks.
var (
	_ hook.Hook              = (*MetricsHook)(nil)
	_ hook.DispatchStarted   = (*MetricsHook)(nil)
	_ hook.DispatchCompleted = (*MetricsHook)(nil)
	_ hook.DispatchAborted   = (*MetricsHook)(nil)
	_ hook.HandlerFailed     = (*MetricsHook)(nil)
	_ hook.GuardSuppressed   = (*MetricsHook)(nil)
)

// MetricsHook records pipeline-wide lifecycle metrics via OpenTelemetry.
// Register it on the pipeline to track dispatch rates, abort rates,
// dispatch durations, handler failures, and guard suppressions.
type MetricsHook struct {
	dispatchesStarted metric.Int64Counter
	dispatchesDone    metric.Int64Counter
	dispatchesAborted metric.Int64Counter
	dispatchDuration  metric.Float64Histogram
	handlerFailures   metric.Int64Counter
	guardSuppressions metric.Int64Counter
}

// NewMetricsHook creates a MetricsHook using the global MeterProvider.
func NewMetricsHook() (*MetricsHook, error) {
	return NewMetricsHookWithMeter(otel.GetMeterProvider().Meter(meterName))
}

// NewMetricsHookWithMeter creates a MetricsHook with the provided meter.
// Use this to inject a test meter or a non-global MeterProvider.
func NewMetricsHookWithMeter(meter metric.Meter) (*MetricsHook, error) {
	started, err := meter.Int64Counter("action.dispatches.started",
		metric.WithDescription("Dispatch sessions started"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, err
	}
	done, err := meter.Int64Counter("action.dispatches.completed",
		metric.WithDescription("Dispatch sessions reaching a terminal state"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, err
	}
	aborted, err := meter.Int64Counter("action.dispatches.aborted",
		metric.WithDescription("Dispatch sessions aborted by a handler or cancelled externally"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("action.dispatch.duration",
		metric.WithDescription("Dispatch session duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("action.handler.failures",
		metric.WithDescription("Handler invocations that failed after retries"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, err
	}
	suppressions, err := meter.Int64Counter("action.guard.suppressions",
		metric.WithDescription("Dispatch requests superseded or dropped by an action guard"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &MetricsHook{
		dispatchesStarted: started,
		dispatchesDone:    done,
		dispatchesAborted: aborted,
		dispatchDuration:  duration,
		handlerFailures:   failures,
		guardSuppressions: suppressions,
	}, nil
}

// Name implements hook.Hook.
func (m *MetricsHook) Name() string { return "observability-metrics" }

// OnDispatchStarted implements hook.DispatchStarted.
func (m *MetricsHook) OnDispatchStarted(ctx context.Context, _ id.DispatchID, action string) error {
	m.dispatchesStarted.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
	return nil
}

// OnDispatchCompleted implements hook.DispatchCompleted.
func (m *MetricsHook) OnDispatchCompleted(ctx context.Context, _ id.DispatchID, action string, elapsed time.Duration) error {
	attrs := metric.WithAttributes(attribute.String("action", action))
	m.dispatchesDone.Add(ctx, 1, attrs)
	m.dispatchDuration.Record(ctx, elapsed.Seconds(), attrs)
	return nil
}

// OnDispatchAborted implements hook.DispatchAborted.
func (m *MetricsHook) OnDispatchAborted(ctx context.Context, _ id.DispatchID, action string, reason string) error {
	m.dispatchesAborted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("reason", reason),
	))
	return nil
}

// OnHandlerFailed implements hook.HandlerFailed.
func (m *MetricsHook) OnHandlerFailed(ctx context.Context, action string, reg *handler.Registration, _ error) error {
	m.handlerFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("handler_id", reg.ID),
	))
	return nil
}

// OnGuardSuppressed implements hook.GuardSuppressed.
func (m *MetricsHook) OnGuardSuppressed(ctx context.Context, action, key, strategy string) error {
	m.guardSuppressions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("strategy", strategy),
	))
	return nil
}
