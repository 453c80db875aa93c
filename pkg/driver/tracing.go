package driver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName identifies this instrumentation scope.
const tracerName = "github.com/corvusdb/corvus-go/pkg/driver"

// newTracer returns a tracer from the given provider, falling back to the
// global OpenTelemetry provider when none is configured.
func newTracer(provider trace.TracerProvider) trace.Tracer {
	if provider != nil {
		return provider.Tracer(tracerName)
	}
	return otel.Tracer(tracerName)
}

// spanEnder finishes a span. Call with nil for success, or with an error to
// mark the span failed.
type spanEnder func(err error)

// startSpan starts a client span with the given attributes.
func startSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, spanEnder) {
	ctx, span := tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}
