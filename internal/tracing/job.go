package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// StartJobSpan opens the consumer span for one delivery of a job.
func StartJobSpan(ctx context.Context, jobType, jobID string) (context.Context, trace.Span) {
	return startJob(ctx, "process", jobType, trace.SpanKindConsumer,
		attribute.String("job.id", jobID))
}

func StartJobEnqueueSpan(ctx context.Context, jobType string) (context.Context, trace.Span) {
	return startJob(ctx, "enqueue", jobType, trace.SpanKindProducer)
}

func startJob(ctx context.Context, op, jobType string, kind trace.SpanKind, extra ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{attribute.String("job.type", jobType)}, extra...)
	return Tracer().Start(ctx, "job."+op+"."+jobType,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}
