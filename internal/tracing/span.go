package tracing

import (
	"context"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrMethod     = attribute.Key("http.method")
	AttrURL        = attribute.Key("http.url")
	AttrStatusCode = attribute.Key("http.status_code")
	AttrPosition   = attribute.Key("replay.position")
	AttrWorker     = attribute.Key("replay.worker")
)

// StartRequestSpan starts a client span for one replayed request.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, method string, target *url.URL, position, worker int) (context.Context, trace.Span) {
	spanName := method + " request"
	if target != nil && target.Path != "" {
		spanName = method + " " + target.Path
	}
	ctx, span := tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		AttrMethod.String(method),
		AttrPosition.Int(position),
		AttrWorker.Int(worker),
	)
	if target != nil {
		span.SetAttributes(AttrURL.String(target.String()))
	}
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable. A zero
// statusCode means no response was received.
func EndSpan(span trace.Span, statusCode int, err error) {
	if statusCode > 0 {
		span.SetAttributes(AttrStatusCode.Int(statusCode))
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
