package observability

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext returns a context.Background() carrying the span
// context of ctx. Work started from it survives the request's
// cancellation but stays linked to its trace.
func DetachTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}
