package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/config"
	"github.com/jonwraymond/pulsecheck/internal/deps"
	"github.com/jonwraymond/pulsecheck/observe"
	"github.com/jonwraymond/pulsecheck/secret"
)

// app holds everything built from the settings.
type app struct {
	cfg      *config.Config
	obs      observe.Observer
	logger   *zap.Logger
	registry *health.Registry
	deps     *deps.Set
	resolver *secret.Resolver
}

type appOptions struct {
	// telemetry enables the tracing and metrics providers.
	telemetry bool

	// promRegistry receives the prometheus exporter collector.
	promRegistry prometheus.Registerer
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	if cfg.Service.Version == "" {
		cfg.Service.Version = version
	}

	obsCfg := observe.Config{
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
		Logging: observe.LoggingConfig{
			Enabled:    true,
			Level:      cfg.Telemetry.Log.Level,
			Format:     cfg.Telemetry.Log.Format,
			Output:     os.Stderr,
			File:       cfg.Telemetry.Log.File,
			MaxSizeMB:  cfg.Telemetry.Log.MaxSizeMB,
			MaxBackups: cfg.Telemetry.Log.MaxBackups,
			MaxAgeDays: cfg.Telemetry.Log.MaxAgeDays,
		},
	}
	if opts.telemetry {
		obsCfg.Tracing = observe.TracingConfig{
			Enabled:   cfg.Telemetry.Tracing.Exporter != "none",
			Exporter:  cfg.Telemetry.Tracing.Exporter,
			SamplePct: cfg.Telemetry.Tracing.SampleRate,
		}
		obsCfg.Metrics = observe.MetricsConfig{
			Enabled:  cfg.Telemetry.Metrics.Exporter != "none",
			Exporter: cfg.Telemetry.Metrics.Exporter,
		}
	}

	var obsOpts []observe.Option
	if opts.promRegistry != nil {
		obsOpts = append(obsOpts, observe.WithPrometheusRegisterer(opts.promRegistry))
	}
	obs, err := observe.NewObserver(ctx, obsCfg, obsOpts...)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	logger := obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	resolver, err := secret.NewDefaultResolver(cfg.Secrets.Dir)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	set, err := deps.Build(ctx, cfg.Checks, deps.Options{
		Resolver:   resolver,
		Middleware: mw,
		Logger:     logger,
	})
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	regOpts := []health.RegistryOption{
		health.WithMaxConcurrency(cfg.Registry.MaxConcurrency),
		health.WithQueueWait(cfg.Registry.QueueWait),
		health.WithLogger(logger),
	}
	if cfg.Registry.UniqueNames {
		regOpts = append(regOpts, health.WithUniqueNames())
	}
	reg := health.NewRegistry(cfg.Service.Environment, regOpts...)
	if err := set.Register(reg); err != nil {
		_ = set.Close()
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	return &app{
		cfg:      cfg,
		obs:      obs,
		logger:   logger,
		registry: reg,
		deps:     set,
		resolver: resolver,
	}, nil
}

// Close releases dependency handles and flushes telemetry.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(
		a.deps.Close(),
		a.resolver.Close(),
		a.obs.Shutdown(ctx),
	)
}
