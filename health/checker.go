package health

import (
	"context"
	"time"
)

// DefaultTimeout bounds a check whose configuration leaves Timeout unset.
const DefaultTimeout = 2 * time.Second

// CheckConfig is the immutable configuration of a single check.
type CheckConfig struct {
	// Name is the key of the check in responses. It should be unique within
	// a registry.
	Name string

	// Readiness includes the check in readiness runs.
	Readiness bool

	// Timeout bounds the worst-case latency of one probe.
	// Default: DefaultTimeout
	Timeout time.Duration

	// DegradeThreshold downgrades a successful probe slower than this to
	// StatusDegraded. Zero disables the downgrade.
	DegradeThreshold time.Duration
}

// Option customises a CheckConfig.
type Option func(*CheckConfig)

// WithName sets the check name.
func WithName(name string) Option {
	return func(c *CheckConfig) { c.Name = name }
}

// WithReadiness sets whether the check takes part in readiness runs.
func WithReadiness(ready bool) Option {
	return func(c *CheckConfig) { c.Readiness = ready }
}

// WithTimeout sets the probe timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *CheckConfig) { c.Timeout = d }
}

// WithDegradeThreshold sets the latency above which a successful probe is
// reported as degraded.
func WithDegradeThreshold(d time.Duration) Option {
	return func(c *CheckConfig) { c.DegradeThreshold = d }
}

// With returns a copy of c with opts applied and defaults filled in.
func (c CheckConfig) With(opts ...Option) CheckConfig {
	for _, opt := range opts {
		if opt != nil {
			opt(&c)
		}
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DegradeThreshold < 0 {
		c.DegradeThreshold = 0
	}
	return c
}

// Result contains the outcome of a health check.
type Result struct {
	// Status is the health status.
	Status Status

	// ResponseTime is how long the probe took. It is nil when the probe did
	// not complete (timeout, crash).
	ResponseTime *time.Duration

	// Error describes the failure. Only set when Status is not healthy.
	Error error

	// Meta contains arbitrary metadata about the check.
	Meta map[string]any
}

// Healthy creates a healthy result for a probe that took elapsed.
func Healthy(elapsed time.Duration) Result {
	return Result{Status: StatusHealthy, ResponseTime: &elapsed}
}

// Degraded creates a degraded result for a probe that took elapsed.
func Degraded(elapsed time.Duration) Result {
	return Result{Status: StatusDegraded, ResponseTime: &elapsed}
}

// Unhealthy creates an unhealthy result with no response time.
func Unhealthy(err error) Result {
	return Result{Status: StatusUnhealthy, Error: err}
}

// WithMeta adds metadata to a result.
func (r Result) WithMeta(meta map[string]any) Result {
	r.Meta = meta
	return r
}

// WithResponseTime sets the response time on a result.
func (r Result) WithResponseTime(d time.Duration) Result {
	r.ResponseTime = &d
	return r
}

// ResponseTimeMS returns the response time in milliseconds and whether it
// was recorded.
func (r Result) ResponseTimeMS() (float64, bool) {
	if r.ResponseTime == nil {
		return 0, false
	}
	return float64(*r.ResponseTime) / float64(time.Millisecond), true
}

// Check is the capability every dependency probe implements.
//
// Check performs exactly one bounded probe. Expected failures (connection
// refused, timeouts, unexpected replies) are reported as an unhealthy
// Result with a nil error. A non-nil error, like a panic, is treated by the
// Registry as a defect in the check and reported as ErrCheckCrashed.
type Check interface {
	// Config returns the configuration of this check.
	Config() CheckConfig

	// Check performs the probe.
	Check(ctx context.Context) (Result, error)
}

// CheckFunc is an adapter to allow ordinary functions to be used as Checks.
type CheckFunc struct {
	config CheckConfig
	fn     func(context.Context) (Result, error)
}

// NewCheckFunc creates a new CheckFunc.
func NewCheckFunc(config CheckConfig, fn func(context.Context) (Result, error)) *CheckFunc {
	return &CheckFunc{config: config.With(), fn: fn}
}

// Config returns the configuration of this check.
func (f *CheckFunc) Config() CheckConfig {
	return f.config
}

// Check performs the health check.
func (f *CheckFunc) Check(ctx context.Context) (Result, error) {
	return f.fn(ctx)
}
