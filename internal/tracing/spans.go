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

// StartLookupSpan opens the span covering one failover walk.
func StartLookupSpan(ctx context.Context, sign, timeframe string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "horoscope.lookup",
		trace.WithAttributes(
			attribute.String("horoscope.sign", sign),
			attribute.String("horoscope.timeframe", timeframe),
		),
	)
}

// StartAttemptSpan opens a client span for a single provider request.
func StartAttemptSpan(ctx context.Context, provider, baseURL string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "provider.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("provider.name", provider),
			attribute.String("provider.base_url", baseURL),
		),
	)
}

// StartRewriteSpan opens a client span for a rewrite API call.
func StartRewriteSpan(ctx context.Context, language string, strength int) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "rewrite.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("rewrite.language", language),
			attribute.Int("rewrite.strength", strength),
		),
	)
}

// InjectHeaders writes the current trace context into req so the provider
// can continue the trace.
func InjectHeaders(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// SetAttemptStatus records the provider's HTTP status on the current span.
func SetAttemptStatus(ctx context.Context, statusCode int) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int("http.response.status_code", statusCode))
	if statusCode < 200 || statusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(statusCode))
	}
}

// SetReadingAttributes tags the lookup span with the provider that served it.
func SetReadingAttributes(ctx context.Context, provider string, textLen int) {
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("horoscope.provider", provider),
		attribute.Int("horoscope.text_length", textLen),
	)
}

// RecordError records err on the current span and marks it failed.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
