// Package mongocheck provides a health check for MongoDB.
package mongocheck

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jonwraymond/pulsecheck/health"
)

const (
	// DefaultName is the default check name.
	DefaultName = "mongodb"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 2 * time.Second

	// DefaultDegradeThreshold marks slower pings as degraded.
	DefaultDegradeThreshold = 500 * time.Millisecond

	label = "MongoDB"
)

// Check pings the primary of a MongoDB deployment.
type Check struct {
	config health.CheckConfig
	client *mongo.Client
	pref   *readpref.ReadPref
}

// New returns a check using client. The caller keeps ownership of the
// client and is responsible for disconnecting it.
func New(client *mongo.Client, opts ...health.Option) *Check {
	return &Check{
		config: health.CheckConfig{
			Name:             DefaultName,
			Readiness:        true,
			Timeout:          DefaultTimeout,
			DegradeThreshold: DefaultDegradeThreshold,
		}.With(opts...),
		client: client,
		pref:   readpref.Primary(),
	}
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	return health.Probe(ctx, c.config, label, func(ctx context.Context) error {
		if c.client == nil {
			return errors.New("no client")
		}
		return c.client.Ping(ctx, c.pref)
	}), nil
}
