package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartRowSpan starts the span covering one batch row: the profile request
// and the record write that follows it.
func StartRowSpan(ctx context.Context, tracer trace.Tracer, profile string, index int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "poi row",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		attribute.String("poi.profile", profile),
		attribute.Int("poi.row.index", index),
	)
	return ctx, span
}

// StartRequestSpan starts a client span for an outgoing HTTP request.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method, path string) (context.Context, trace.Span) {
	spanName := method
	if path != "" {
		spanName = method + " " + path
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.String("http.request.method", method))
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
