package logger

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "forgeflow"

// SpanContext wraps an OTel span for managed lifecycle. Use StartSpan to
// begin a span and End to complete it.
type SpanContext struct {
	ctx  context.Context
	span trace.Span
}

// StartSpan creates a new span as a child of the current trace context.
//
//	sc := logger.StartSpan(ctx, "workflow.hook")
//	defer sc.End()
//	ctx = sc.Context()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) *SpanContext {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, name, opts...)
	return &SpanContext{ctx: ctx, span: span}
}

func (s *SpanContext) Context() context.Context {
	return s.ctx
}

func (s *SpanContext) End() {
	s.span.End()
}

// RecordError marks the span as failed. Safe to call with a nil error.
func (s *SpanContext) RecordError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
}
