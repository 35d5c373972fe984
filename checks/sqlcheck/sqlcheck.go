// Package sqlcheck provides health checks for relational databases reached
// through database/sql or GORM.
//
// Both variants run "SELECT 1" and scan the row, so a check only passes when
// the server actually answered a query, not merely accepted a connection.
package sqlcheck

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jonwraymond/pulsecheck/health"
)

const (
	// DefaultName is the default check name.
	DefaultName = "database"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 2 * time.Second

	// DefaultDegradeThreshold marks slower answers as degraded.
	DefaultDegradeThreshold = 500 * time.Millisecond

	label = "Database"
)

var errNilDB = errors.New("no database handle")

// Check probes a database with "SELECT 1".
type Check struct {
	config health.CheckConfig
	query  func(ctx context.Context) error
	stats  func() sql.DBStats
}

func defaults(opts []health.Option) health.CheckConfig {
	return health.CheckConfig{
		Name:             DefaultName,
		Readiness:        true,
		Timeout:          DefaultTimeout,
		DegradeThreshold: DefaultDegradeThreshold,
	}.With(opts...)
}

// New returns a check for db. The caller keeps ownership of db.
func New(db *sql.DB, opts ...health.Option) *Check {
	c := &Check{config: defaults(opts)}
	if db == nil {
		c.query = func(context.Context) error { return errNilDB }
		return c
	}
	c.query = func(ctx context.Context) error {
		var one int
		return db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	}
	c.stats = db.Stats
	return c
}

// NewGorm returns a check for a GORM handle. The caller keeps ownership of
// db.
func NewGorm(db *gorm.DB, opts ...health.Option) *Check {
	c := &Check{config: defaults(opts)}
	if db == nil {
		c.query = func(context.Context) error { return errNilDB }
		return c
	}
	c.query = func(ctx context.Context) error {
		var one int
		return db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
	}
	if sqlDB, err := db.DB(); err == nil {
		c.stats = sqlDB.Stats
	}
	return c
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	result := health.Probe(ctx, c.config, label, c.query)
	if result.Status == health.StatusUnhealthy || c.stats == nil {
		return result, nil
	}

	s := c.stats()
	return result.WithMeta(map[string]any{
		"open_connections": s.OpenConnections,
		"in_use":           s.InUse,
		"idle":             s.Idle,
	}), nil
}
