package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "github.com/darmiel/idgate"

// Common span attribute keys.
const (
	AttrLoginMode    = "idgate.login.mode"
	AttrSubject      = "idgate.subject"
	AttrAttempt      = "idgate.retry.attempt"
	AttrUpstreamCode = "http.response.status_code"
)

// StartSpan starts a span on the global tracer provider. Without a
// configured provider this is a no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// RecordError records err on the span and marks it as failed.
func RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
