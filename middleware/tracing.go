package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mineclover/context-action-sub008/handler"
)

// tracerName is the instrumentation scope name for pipeline tracing.
const tracerName = "github.com/mineclover/context-action-sub008"

// Tracing returns middleware that wraps handler execution in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: action.name, action.handler_id,
// action.priority, action.attempt. On error, the span status is set to
// codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, inv *handler.Invocation, next Handler) (any, error) {
		ctx, span := tracer.Start(ctx, "action.handler.execute",
			trace.WithAttributes(
				attribute.String("action.name", inv.Action),
				attribute.String("action.handler_id", inv.Reg.ID),
				attribute.Int("action.priority", inv.Reg.Priority),
				attribute.Int("action.attempt", inv.Attempt),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		value, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return value, err
	}
}
