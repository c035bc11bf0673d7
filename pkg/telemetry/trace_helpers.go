package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName names the tracer used across skillkit
const DefaultTracerName = "skillkit"

// Tracer returns a named tracer from the global provider
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	return otel.GetTracerProvider().Tracer(name)
}

// Start opens a span on the default tracer.
func Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer("").Start(ctx, name, trace.WithAttributes(attrs...))
}

// Finish sets the span status from err and ends it.
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// WithSpan runs f inside a span named name.
func WithSpan(ctx context.Context, name string, f func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := Start(ctx, name, attrs...)
	err := f(ctx)
	Finish(span, err)
	return err
}

// WithSpanFunc is WithSpan for functions that cannot fail.
func WithSpanFunc(ctx context.Context, name string, f func(context.Context), attrs ...attribute.KeyValue) {
	_ = WithSpan(ctx, name, func(ctx context.Context) error {
		f(ctx)
		return nil
	}, attrs...)
}

// SkillAttributes identifies a skill on a span.
func SkillAttributes(name, path string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("skill.name", name),
		attribute.String("skill.path", path),
	}
}

// AddEvent adds an event to the current span
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes adds attributes to the current span
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	trace.SpanFromContext(ctx).SetAttributes(attrs...)
}
