package health

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonwraymond/pulsecheck/resilience"
)

const (
	// DefaultMaxConcurrency is the default number of checks a run keeps in
	// flight at once.
	DefaultMaxConcurrency = 10

	// TimeoutGrace is added to a check's own timeout before the registry
	// abandons it. Well-behaved checks report their own timeout first.
	TimeoutGrace = 100 * time.Millisecond
)

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxConcurrency bounds the number of checks in flight during one run.
// Values below 1 select DefaultMaxConcurrency.
//
// A check that ignores its context gives up its slot once abandoned, so the
// number of goroutines still running may exceed n. Probes that run through
// Probe and outlive their timeout are counted in the memory check's
// abandoned_probes.
func WithMaxConcurrency(n int) RegistryOption {
	return func(r *Registry) { r.maxConcurrency = n }
}

// WithQueueWait bounds how long a check waits for a free slot during a run.
// A check still queued after d is reported unhealthy with ErrCheckNotStarted.
// Zero waits until the run's context ends.
func WithQueueWait(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.queueWait = d
		}
	}
}

// WithLogger sets the logger used to report crashed checks.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithUniqueNames makes Register reject a name that is already registered.
func WithUniqueNames() RegistryOption {
	return func(r *Registry) { r.uniqueNames = true }
}

// WithClock sets the clock used to timestamp responses.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry runs registered checks concurrently and aggregates their results.
//
// The environment label and concurrency limit are fixed at construction.
// The registry never owns the dependency handles used by its checks.
type Registry struct {
	environment    string
	maxConcurrency int
	queueWait      time.Duration
	uniqueNames    bool
	logger         *zap.Logger
	now            func() time.Time

	mu      sync.RWMutex
	entries []entry // Maintains registration order
}

type entry struct {
	check  Check
	config CheckConfig
}

// NewRegistry creates a registry for the given environment label.
func NewRegistry(environment string, opts ...RegistryOption) *Registry {
	r := &Registry{
		environment:    environment,
		maxConcurrency: DefaultMaxConcurrency,
		logger:         zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxConcurrency < 1 {
		r.maxConcurrency = DefaultMaxConcurrency
	}
	return r
}

// Environment returns the environment label.
func (r *Registry) Environment() string {
	return r.environment
}

// MaxConcurrency returns the concurrency limit of a run.
func (r *Registry) MaxConcurrency() int {
	return r.maxConcurrency
}

// Register adds a check to the registry.
//
// Duplicate names are accepted unless the registry was built with
// WithUniqueNames. Duplicates run concurrently and the result that finishes
// last is the one reported.
func (r *Registry) Register(check Check) error {
	if check == nil {
		return fmt.Errorf("%w: nil check", ErrInvalidCheck)
	}
	cfg := check.Config().With()
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidCheck)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.config.Name != cfg.Name {
			continue
		}
		if r.uniqueNames {
			return fmt.Errorf("%w: %q", ErrDuplicateCheck, cfg.Name)
		}
		r.logger.Warn("duplicate health check name, results will overwrite each other",
			zap.String("check", cfg.Name))
		break
	}

	r.entries = append(r.entries, entry{check: check, config: cfg})
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(checks ...Check) {
	for _, c := range checks {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
}

// Names returns the names of all registered checks in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.config.Name
	}
	return names
}

// Liveness reports that the process is up. It performs no I/O.
func (r *Registry) Liveness() OverallResponse {
	return OverallResponse{
		Status:      StatusHealthy,
		Timestamp:   r.now().UTC(),
		Environment: r.environment,
		Checks:      map[string]Result{},
	}
}

// Readiness runs the checks marked for readiness.
func (r *Registry) Readiness(ctx context.Context) OverallResponse {
	return r.Run(ctx, true)
}

// Run executes the registered checks and aggregates their results.
//
// When readinessOnly is set only checks with Readiness enabled run. At most
// MaxConcurrency checks are admitted at once; the rest wait for a slot. A
// check abandoned after Timeout+TimeoutGrace frees its slot even if its
// goroutine is still running. Every selected check yields exactly one entry
// in the response, whatever happens to the others.
func (r *Registry) Run(ctx context.Context, readinessOnly bool) OverallResponse {
	start := time.Now()
	selected := r.selected(readinessOnly)
	results := make(map[string]Result, len(selected))
	peak := 0

	if len(selected) > 0 {
		gate := resilience.NewBulkhead(resilience.BulkheadConfig{
			MaxConcurrent: r.maxConcurrency,
			MaxWait:       r.queueWait,
		})

		var wg sync.WaitGroup
		var mu sync.Mutex

		for _, e := range selected {
			wg.Add(1)
			go func(e entry) {
				defer wg.Done()
				result := r.admit(ctx, gate, e)
				mu.Lock()
				results[e.config.Name] = result
				mu.Unlock()
			}(e)
		}

		wg.Wait()
		peak = gate.Stats().Peak
	}

	overall := StatusHealthy
	for _, result := range results {
		overall = Combine(overall, result.Status)
	}

	r.logger.Debug("health run completed",
		zap.Bool("readiness_only", readinessOnly),
		zap.Int("checks", len(results)),
		zap.Int("peak_in_flight", peak),
		zap.Stringer("status", overall),
		zap.Duration("duration", time.Since(start)))

	return OverallResponse{
		Status:      overall,
		Timestamp:   r.now().UTC(),
		Environment: r.environment,
		Checks:      results,
	}
}

// Check runs a single named check. If several checks share the name the
// last registered one runs.
func (r *Registry) Check(ctx context.Context, name string) (Result, error) {
	r.mu.RLock()
	var (
		found entry
		ok    bool
	)
	for _, e := range r.entries {
		if e.config.Name == name {
			found, ok = e, true
		}
	}
	r.mu.RUnlock()

	if !ok {
		return Result{}, ErrCheckNotFound
	}
	return r.runCheck(ctx, found), nil
}

func (r *Registry) selected(readinessOnly bool) []entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if readinessOnly && !e.config.Readiness {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (r *Registry) admit(ctx context.Context, gate *resilience.Bulkhead, e entry) Result {
	if err := gate.Acquire(ctx); err != nil {
		return Unhealthy(fmt.Errorf("%w: %w", ErrCheckNotStarted, err))
	}
	defer gate.Release()

	return r.runCheck(ctx, e)
}

// runCheck executes one check in its own goroutine so that neither a panic
// nor a probe that ignores its context can escape this boundary.
func (r *Registry) runCheck(parent context.Context, e entry) Result {
	ctx, cancel := context.WithTimeout(parent, e.config.Timeout+TimeoutGrace)
	defer cancel()

	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if v := recover(); v != nil {
				resultCh <- r.crashed(e.config, fmt.Errorf("panic: %v", v), debug.Stack())
			}
		}()

		result, err := e.check.Check(ctx)
		if err != nil {
			resultCh <- r.crashed(e.config, err, nil)
			return
		}
		resultCh <- r.normalize(e.config, result)
	}()

	select {
	case result := <-resultCh:
		return result
	case <-ctx.Done():
		if err := parent.Err(); err != nil {
			return Unhealthy(fmt.Errorf("check interrupted: %w", err))
		}
		return Unhealthy(fmt.Errorf("check %w", &timeoutError{after: e.config.Timeout}))
	}
}

func (r *Registry) crashed(cfg CheckConfig, cause error, stack []byte) Result {
	fields := []zap.Field{
		zap.String("check", cfg.Name),
		zap.Error(cause),
	}
	if len(stack) > 0 {
		fields = append(fields, zap.ByteString("stack", stack))
	}
	r.logger.Error("health check crashed", fields...)

	return Unhealthy(&crashError{cause: cause})
}

// normalize enforces the Result invariants on what a check returned.
func (r *Registry) normalize(cfg CheckConfig, result Result) Result {
	if !result.Status.Valid() {
		return r.crashed(cfg, fmt.Errorf("invalid status %d", int(result.Status)), nil)
	}
	if len(result.Meta) > 0 {
		if _, err := json.Marshal(result.Meta); err != nil {
			return r.crashed(cfg, fmt.Errorf("meta not encodable: %w", err), nil)
		}
	}
	if result.Status == StatusHealthy {
		result.Error = nil
	}
	return result
}

// AsCheck exposes the registry as a single check so registries can be
// nested. The nested run covers readiness checks only when config.Readiness
// is set. Config.Timeout should exceed the slowest nested check.
func (r *Registry) AsCheck(config CheckConfig) Check {
	return &registryCheck{registry: r, config: config.With()}
}

type registryCheck struct {
	registry *Registry
	config   CheckConfig
}

func (c *registryCheck) Config() CheckConfig {
	return c.config
}

func (c *registryCheck) Check(ctx context.Context) (Result, error) {
	start := time.Now()
	resp := c.registry.Run(ctx, c.config.Readiness)
	elapsed := time.Since(start)

	meta := make(map[string]any, len(resp.Checks))
	var failing []string
	for name, result := range resp.Checks {
		meta[name] = result.Status.String()
		if result.Status == StatusUnhealthy {
			failing = append(failing, name)
		}
	}

	result := Result{Status: resp.Status, Meta: meta}.WithResponseTime(elapsed)
	if len(failing) > 0 {
		sort.Strings(failing)
		result.Error = fmt.Errorf("%d of %d checks unhealthy: %s",
			len(failing), len(resp.Checks), strings.Join(failing, ", "))
	}
	return result, nil
}
