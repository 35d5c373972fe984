// Package deps turns check settings into registered health checks.
//
// Shared client handles (SQL pools, the mongo client, the queue inspector)
// are opened here and owned by the returned Set; the registry only borrows
// them.
package deps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/jonwraymond/pulsecheck/checks/amqpcheck"
	"github.com/jonwraymond/pulsecheck/checks/httpcheck"
	"github.com/jonwraymond/pulsecheck/checks/mongocheck"
	"github.com/jonwraymond/pulsecheck/checks/queuecheck"
	"github.com/jonwraymond/pulsecheck/checks/redischeck"
	"github.com/jonwraymond/pulsecheck/checks/sqlcheck"
	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/config"
	"github.com/jonwraymond/pulsecheck/internal/urlutil"
	"github.com/jonwraymond/pulsecheck/observe"
	"github.com/jonwraymond/pulsecheck/secret"
)

// closeTimeout bounds the disconnect of clients that take a context.
const closeTimeout = 5 * time.Second

// Resolver resolves secret references in settings values.
type Resolver interface {
	ResolveValue(ctx context.Context, value string) (string, error)
	ResolveMap(ctx context.Context, input map[string]string) (map[string]string, error)
}

// Options tune Build.
type Options struct {
	// Resolver expands secrets in URLs and headers. Default: a resolver
	// without providers, which still expands ${VAR}.
	Resolver Resolver

	// Middleware instruments every check when set.
	Middleware *observe.Middleware

	// Logger receives one line per configured dependency.
	Logger *zap.Logger
}

// Set holds the built checks and the client handles they borrow.
type Set struct {
	Checks  []health.Check
	closers []func() error
}

// Close releases every client handle opened by Build.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// Register adds every check of the set to reg.
func (s *Set) Register(reg *health.Registry) error {
	for _, c := range s.Checks {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

type builder struct {
	ctx  context.Context
	opts Options
	set  *Set
}

// Build creates a check for every configured dependency. On error every
// handle opened so far is closed.
func Build(ctx context.Context, cfg config.ChecksConfig, opts Options) (*Set, error) {
	if opts.Resolver == nil {
		opts.Resolver = secret.NewResolver(true)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	b := &builder{ctx: ctx, opts: opts, set: &Set{}}
	steps := []func(config.ChecksConfig) error{
		b.database,
		b.redis,
		b.rabbitmq,
		b.mongodb,
		b.queue,
		b.http,
		b.memory,
	}
	for _, step := range steps {
		if err := step(cfg); err != nil {
			_ = b.set.Close()
			return nil, err
		}
	}
	return b.set, nil
}

func (b *builder) add(kind, target string, check health.Check) {
	if b.opts.Middleware != nil {
		check = b.opts.Middleware.Wrap(check)
	}
	cfg := check.Config()
	b.opts.Logger.Info("dependency configured",
		zap.String("check", cfg.Name),
		zap.String("kind", kind),
		zap.String("target", urlutil.Redact(target)),
		zap.Bool("readiness", cfg.Readiness),
		zap.Duration("timeout", cfg.Timeout))
	b.set.Checks = append(b.set.Checks, check)
}

func (b *builder) resolve(kind, value string) (string, error) {
	resolved, err := b.opts.Resolver.ResolveValue(b.ctx, value)
	if err != nil {
		return "", fmt.Errorf("%s: resolve url: %w", kind, err)
	}
	return resolved, nil
}

func (b *builder) database(cfg config.ChecksConfig) error {
	c := cfg.Database
	if c == nil {
		return nil
	}
	dsn, err := b.resolve("database", c.URL)
	if err != nil {
		return err
	}

	switch c.Driver {
	case "sqlite":
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return fmt.Errorf("database: open sqlite: %w", err)
		}
		b.set.closers = append(b.set.closers, db.Close)
		b.add("sqlite", dsn, sqlcheck.New(db, checkOptions(c.CheckOptions)...))

	case "postgres":
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger:               gormlogger.Discard,
			DisableAutomaticPing: true,
		})
		if err != nil {
			return fmt.Errorf("database: open postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		b.set.closers = append(b.set.closers, sqlDB.Close)
		b.add("postgres", dsn, sqlcheck.NewGorm(db, checkOptions(c.CheckOptions)...))

	default:
		return fmt.Errorf("database: unsupported driver %q", c.Driver)
	}
	return nil
}

func (b *builder) redis(cfg config.ChecksConfig) error {
	c := cfg.Redis
	if c == nil {
		return nil
	}
	url, err := b.resolve("redis", c.URL)
	if err != nil {
		return err
	}
	b.add("redis", url, redischeck.NewFromURL(url, checkOptions(c.CheckOptions)...))
	return nil
}

func (b *builder) rabbitmq(cfg config.ChecksConfig) error {
	c := cfg.RabbitMQ
	if c == nil {
		return nil
	}
	url, err := b.resolve("rabbitmq", c.URL)
	if err != nil {
		return err
	}
	b.add("rabbitmq", url, amqpcheck.New(url, amqpcheck.Config{
		Exchange:     c.Exchange,
		ExchangeKind: c.ExchangeKind,
	}, checkOptions(c.CheckOptions)...))
	return nil
}

func (b *builder) mongodb(cfg config.ChecksConfig) error {
	c := cfg.MongoDB
	if c == nil {
		return nil
	}
	uri, err := b.resolve("mongodb", c.URL)
	if err != nil {
		return err
	}

	// Connect only validates options; servers are dialled in the background.
	client, err := mongo.Connect(b.ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("mongodb: connect: %w", err)
	}
	b.set.closers = append(b.set.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		return client.Disconnect(ctx)
	})
	b.add("mongodb", uri, mongocheck.New(client, checkOptions(c.CheckOptions)...))
	return nil
}

func (b *builder) queue(cfg config.ChecksConfig) error {
	c := cfg.Queue
	if c == nil {
		return nil
	}
	uri, err := b.resolve("queue", c.URL)
	if err != nil {
		return err
	}

	opt, err := asynq.ParseRedisURI(uri)
	if err != nil {
		return fmt.Errorf("queue: %w", err)
	}
	inspector := asynq.NewInspector(opt)
	b.set.closers = append(b.set.closers, inspector.Close)
	b.add("asynq", uri, queuecheck.New(inspector, queuecheck.Config{
		AllowNoWorkers: c.AllowNoWorkers,
	}, checkOptions(c.CheckOptions)...))
	return nil
}

func (b *builder) http(cfg config.ChecksConfig) error {
	for i, c := range cfg.HTTP {
		kind := fmt.Sprintf("http[%d]", i)
		url, err := b.resolve(kind, c.URL)
		if err != nil {
			return err
		}
		headers, err := b.opts.Resolver.ResolveMap(b.ctx, c.Headers)
		if err != nil {
			return fmt.Errorf("%s: headers: %w", kind, err)
		}
		b.add("http", url, httpcheck.New(url, httpcheck.Config{
			ExpectedStatus: c.ExpectedStatus,
			Headers:        headers,
		}, checkOptions(c.CheckOptions)...))
	}
	return nil
}

func (b *builder) memory(cfg config.ChecksConfig) error {
	c := cfg.Memory
	if c == nil {
		return nil
	}
	b.add("memory", "", health.NewMemoryCheck(health.MemoryCheckConfig{
		WarningThreshold:  c.WarningThreshold,
		CriticalThreshold: c.CriticalThreshold,
		MaxAlloc:          c.MaxAllocBytes,
	}, checkOptions(c.CheckOptions)...))
	return nil
}

// checkOptions turns non-zero overrides into health options.
func checkOptions(o config.CheckOptions) []health.Option {
	var opts []health.Option
	if o.Name != "" {
		opts = append(opts, health.WithName(o.Name))
	}
	if o.Timeout > 0 {
		opts = append(opts, health.WithTimeout(o.Timeout))
	}
	if o.DegradeThreshold > 0 {
		opts = append(opts, health.WithDegradeThreshold(o.DegradeThreshold))
	}
	if o.Readiness != nil {
		opts = append(opts, health.WithReadiness(*o.Readiness))
	}
	return opts
}
