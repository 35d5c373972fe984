package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/pulsecheck/health"
)

// SpanName returns the span name used for probes of the named check.
func SpanName(check string) string {
	return "health.check." + check
}

// Tracer wraps OpenTelemetry tracing with check-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a span for one probe.
	StartSpan(ctx context.Context, cfg health.CheckConfig) (context.Context, trace.Span)

	// EndSpan records the outcome and ends the span. err is the defect
	// returned by the check itself, if any.
	EndSpan(span trace.Span, result health.Result, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, cfg health.CheckConfig) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanName(cfg.Name),
		trace.WithAttributes(
			attribute.String("check.name", cfg.Name),
			attribute.Bool("check.readiness", cfg.Readiness),
			attribute.Int64("check.timeout_ms", cfg.Timeout.Milliseconds()),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, result health.Result, err error) {
	span.SetAttributes(
		attribute.String("check.status", result.Status.String()),
		attribute.Bool("check.error", err != nil),
	)
	if ms, ok := result.ResponseTimeMS(); ok {
		span.SetAttributes(attribute.Float64("check.response_time_ms", ms))
	}

	switch {
	case err != nil:
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	case result.Status == health.StatusUnhealthy:
		msg := "unhealthy"
		if result.Error != nil {
			msg = result.Error.Error()
		}
		span.SetStatus(codes.Error, msg)
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
