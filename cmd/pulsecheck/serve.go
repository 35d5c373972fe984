package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonwraymond/pulsecheck/auth"
	"github.com/jonwraymond/pulsecheck/internal/config"
	"github.com/jonwraymond/pulsecheck/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configPath, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("trace-exporter", "none", "trace exporter: otlp, otlphttp, jaeger, stdout or none")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a, err := newApp(ctx, cfg, appOptions{telemetry: true, promRegistry: promRegistry})
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			a.logger.Warn("cleanup failed", zap.Error(err))
		}
	}()

	var guard func(http.Handler) http.Handler
	if cfg.Auth.Enabled() {
		verifier, err := auth.NewJWTVerifier(auth.JWTConfig{
			Secret:   []byte(cfg.Auth.JWTSecret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Logger:   a.logger,
		})
		if err != nil {
			return err
		}
		guard = verifier.Middleware
	}

	srv := server.New(cfg.Server, a.registry, server.Options{
		ServiceName: cfg.Service.Name,
		Guard:       guard,
		Gatherer:    promRegistry,
		Logger:      a.logger,
	})

	a.logger.Info("serving health checks",
		zap.String("environment", cfg.Service.Environment),
		zap.Strings("checks", a.registry.Names()),
		zap.Bool("auth", cfg.Auth.Enabled()))
	return srv.Run(ctx)
}
