package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/pulsecheck/resilience"
)

// Probe runs fn under the policy shared by all dependency checks.
//
// fn runs on its own goroutine bounded by cfg.Timeout, so blocking client
// calls cannot stall the caller. On success the result is classified against
// cfg.DegradeThreshold. On failure, timeout or panic the result is unhealthy,
// carries no response time and an error of the form "<label> failed: <cause>".
func Probe(ctx context.Context, cfg CheckConfig, label string, fn func(context.Context) error) Result {
	cfg = cfg.With()

	start := time.Now()
	err := resilience.ExecuteWithTimeout(ctx, cfg.Timeout, fn)
	elapsed := time.Since(start)

	if err != nil {
		return Unhealthy(ProbeFailure(label, cfg.Timeout, err))
	}
	return Classify(cfg, elapsed)
}

// Classify returns the result of a probe that completed successfully in
// elapsed.
func Classify(cfg CheckConfig, elapsed time.Duration) Result {
	if cfg.DegradeThreshold > 0 && elapsed > cfg.DegradeThreshold {
		return Degraded(elapsed)
	}
	return Healthy(elapsed)
}

// ProbeFailure builds the classified error reported by a failed probe.
// Deadline errors are normalised so that errors.Is(err, ErrCheckTimeout)
// holds.
func ProbeFailure(label string, timeout time.Duration, err error) error {
	if errors.Is(err, resilience.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		err = &timeoutError{after: timeout}
	}
	return fmt.Errorf("%s failed: %w", label, err)
}

type timeoutError struct {
	after time.Duration
}

func (e *timeoutError) Error() string {
	return "timed out after " + e.after.String()
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrCheckTimeout
}

type crashError struct {
	cause error
}

func (e *crashError) Error() string {
	return "check crashed: " + e.cause.Error()
}

func (e *crashError) Is(target error) bool {
	return target == ErrCheckCrashed
}

func (e *crashError) Unwrap() error {
	return e.cause
}
