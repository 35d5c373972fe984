package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/jonwraymond/pulsecheck/health"
)

// Metrics records the outcome of health check probes.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCheck records one probe of the check described by cfg.
	RecordCheck(ctx context.Context, cfg health.CheckConfig, result health.Result, duration time.Duration)
}

type metricsImpl struct {
	total    metric.Int64Counter
	failures metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	total, err := meter.Int64Counter(
		"health.check.total",
		metric.WithDescription("Total number of health check probes"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"health.check.failures",
		metric.WithDescription("Number of probes that reported UNHEALTHY"),
		metric.WithUnit("{probe}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"health.check.duration_ms",
		metric.WithDescription("Health check probe duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{total: total, failures: failures, duration: duration}, nil
}

func (m *metricsImpl) RecordCheck(ctx context.Context, cfg health.CheckConfig, result health.Result, duration time.Duration) {
	// Recording must survive the probe's own deadline.
	ctx = context.WithoutCancel(ctx)

	opt := metric.WithAttributes(
		attribute.String("check.name", cfg.Name),
		attribute.String("check.status", result.Status.String()),
		attribute.Bool("check.readiness", cfg.Readiness),
	)

	m.total.Add(ctx, 1, opt)
	if result.Status == health.StatusUnhealthy {
		m.failures.Add(ctx, 1, opt)
	}
	m.duration.Record(ctx, float64(duration)/float64(time.Millisecond), opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordCheck(context.Context, health.CheckConfig, health.Result, time.Duration) {}
