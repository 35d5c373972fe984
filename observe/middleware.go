package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/jonwraymond/pulsecheck/health"
)

// Middleware wraps health checks with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: checks returned by Wrap are safe for concurrent use when
//     the wrapped check is.
//   - Errors: results, errors and panics of the wrapped check are recorded
//     and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  *zap.Logger
}

// NewMiddleware creates a new Middleware with the given components. Nil
// components are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger *zap.Logger) *Middleware {
	if tracer == nil {
		tracer = newTracer(tracenoop.NewTracerProvider().Tracer("noop"))
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap returns a check that instruments every probe of check. The returned
// check reports the same Config.
func (m *Middleware) Wrap(check health.Check) health.Check {
	return &instrumentedCheck{inner: check, mw: m}
}

type instrumentedCheck struct {
	inner health.Check
	mw    *Middleware
}

func (c *instrumentedCheck) Config() health.CheckConfig {
	return c.inner.Config()
}

func (c *instrumentedCheck) Check(ctx context.Context) (result health.Result, err error) {
	cfg := c.inner.Config()
	ctx, span := c.mw.tracer.StartSpan(ctx, cfg)
	start := time.Now()

	defer func() {
		if v := recover(); v != nil {
			perr := fmt.Errorf("panic: %v", v)
			c.mw.record(ctx, span, cfg, health.Unhealthy(perr), perr, time.Since(start))
			panic(v)
		}
	}()

	result, err = c.inner.Check(ctx)
	c.mw.record(ctx, span, cfg, result, err, time.Since(start))
	return result, err
}

func (m *Middleware) record(ctx context.Context, span trace.Span, cfg health.CheckConfig, result health.Result, err error, d time.Duration) {
	recorded := result
	if err != nil {
		recorded = health.Unhealthy(err)
	}

	m.tracer.EndSpan(span, recorded, err)
	m.metrics.RecordCheck(ctx, cfg, recorded, d)

	fields := []zap.Field{
		zap.String("check", cfg.Name),
		zap.Stringer("status", recorded.Status),
		zap.Duration("duration", d),
	}
	switch {
	case err != nil:
		m.logger.Error("check crashed", append(fields, zap.Error(err))...)
	case recorded.Status == health.StatusHealthy:
		m.logger.Debug("check passed", fields...)
	default:
		if recorded.Error != nil {
			fields = append(fields, zap.Error(recorded.Error))
		}
		m.logger.Warn("check not healthy", fields...)
	}
}
