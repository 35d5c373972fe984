// Package redischeck provides a health check for Redis caches.
package redischeck

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/urlutil"
)

const (
	// DefaultName is the default check name.
	DefaultName = "redis"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 2 * time.Second

	// DefaultDegradeThreshold marks slower PINGs as degraded.
	DefaultDegradeThreshold = 100 * time.Millisecond

	label = "Redis"
)

// Pinger is the subset of the go-redis clients used by the check.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type Pinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// Check sends PING and expects PONG.
type Check struct {
	config health.CheckConfig
	ping   func(ctx context.Context) error
	target string
}

func defaults(opts []health.Option) health.CheckConfig {
	return health.CheckConfig{
		Name:             DefaultName,
		Readiness:        true,
		Timeout:          DefaultTimeout,
		DegradeThreshold: DefaultDegradeThreshold,
	}.With(opts...)
}

// New returns a check that pings through an existing client. The caller
// keeps ownership of the client.
func New(client Pinger, opts ...health.Option) *Check {
	return &Check{
		config: defaults(opts),
		ping: func(ctx context.Context) error {
			if client == nil {
				return fmt.Errorf("no client")
			}
			return expectPong(client.Ping(ctx))
		},
	}
}

// NewFromURL returns a check that connects to rawURL for every probe and
// closes the connection afterwards.
func NewFromURL(rawURL string, opts ...health.Option) *Check {
	c := &Check{config: defaults(opts), target: urlutil.Redact(rawURL)}

	options, err := redis.ParseURL(rawURL)
	if err != nil {
		parseErr := fmt.Errorf("invalid url: %w", err)
		c.ping = func(context.Context) error { return parseErr }
		return c
	}
	options.DialTimeout = c.config.Timeout
	options.ReadTimeout = c.config.Timeout
	options.WriteTimeout = c.config.Timeout
	options.MaxRetries = -1

	c.ping = func(ctx context.Context) error {
		client := redis.NewClient(options)
		defer client.Close()
		return expectPong(client.Ping(ctx))
	}
	return c
}

func expectPong(cmd *redis.StatusCmd) error {
	reply, err := cmd.Result()
	if err != nil {
		return err
	}
	if reply != "PONG" {
		return fmt.Errorf("unexpected reply %q", reply)
	}
	return nil
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	result := health.Probe(ctx, c.config, label, c.ping)
	if c.target != "" {
		result = result.WithMeta(map[string]any{"target": c.target})
	}
	return result, nil
}
