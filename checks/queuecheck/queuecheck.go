// Package queuecheck provides a health check for asynq task queues.
//
// The check asks the queue's Redis backend which worker servers are
// registered. A queue without live workers accepts tasks that nobody
// processes, so by default that is reported as unhealthy.
package queuecheck

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jonwraymond/pulsecheck/health"
)

const (
	// DefaultName is the default check name.
	DefaultName = "asynq"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 3 * time.Second

	// DefaultDegradeThreshold marks slower inspections as degraded.
	DefaultDegradeThreshold = 1200 * time.Millisecond

	label = "Task queue"

	statusActive = "active"
)

// ErrNoWorkers is reported when no active worker server is registered.
var ErrNoWorkers = errors.New("no workers responding")

// Inspector lists worker servers. *asynq.Inspector satisfies it.
type Inspector interface {
	Servers() ([]*asynq.ServerInfo, error)
}

// Config tunes the worker requirement.
type Config struct {
	// AllowNoWorkers reports a queue without workers as healthy.
	AllowNoWorkers bool
}

// Check inspects the worker servers of a task queue.
type Check struct {
	config    health.CheckConfig
	inspector Inspector
	queue     Config
}

// New returns a check using inspector. The caller keeps ownership of the
// inspector.
func New(inspector Inspector, config Config, opts ...health.Option) *Check {
	return &Check{
		config: health.CheckConfig{
			Name:             DefaultName,
			Readiness:        true,
			Timeout:          DefaultTimeout,
			DegradeThreshold: DefaultDegradeThreshold,
		}.With(opts...),
		inspector: inspector,
		queue:     config,
	}
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	var (
		workers int
		queues  []string
	)

	result := health.Probe(ctx, c.config, label, func(ctx context.Context) error {
		if c.inspector == nil {
			return errors.New("no inspector")
		}
		servers, err := c.inspector.Servers()
		if err != nil {
			return err
		}
		workers, queues = summarize(servers)
		if workers == 0 && !c.queue.AllowNoWorkers {
			return ErrNoWorkers
		}
		return nil
	})

	if result.Status == health.StatusUnhealthy {
		return result, nil
	}
	return result.WithMeta(map[string]any{
		"workers": workers,
		"queues":  queues,
	}), nil
}

// summarize counts active servers and collects the queues they serve.
func summarize(servers []*asynq.ServerInfo) (int, []string) {
	seen := make(map[string]struct{})
	active := 0
	for _, s := range servers {
		if s == nil || s.Status != statusActive {
			continue
		}
		active++
		for q := range s.Queues {
			seen[q] = struct{}{}
		}
	}

	queues := make([]string, 0, len(seen))
	for q := range seen {
		queues = append(queues, q)
	}
	sort.Strings(queues)
	return active, queues
}
