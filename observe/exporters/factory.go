// Package exporters builds the OpenTelemetry exporters selected by name in
// the telemetry configuration.
//
// Trace exporters: stdout, otlp (gRPC), otlphttp, jaeger, none.
// Metric readers: stdout, otlp, prometheus, none.
//
// The otlp, otlphttp and jaeger exporters take their endpoints from the standard
// OTEL_EXPORTER_* environment variables and refuse to start without one, so a
// typo in deployment config surfaces at startup rather than as silently
// dropped telemetry.
package exporters

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises exporter construction.
type Option func(*settings)

type settings struct {
	writer     io.Writer
	registerer promclient.Registerer
}

// WithWriter sets the destination of the stdout exporters.
// Default: os.Stdout
func WithWriter(w io.Writer) Option {
	return func(s *settings) { s.writer = w }
}

// WithRegisterer sets the registry the prometheus exporter registers its
// collector with. Default: prometheus.DefaultRegisterer
func WithRegisterer(r promclient.Registerer) Option {
	return func(s *settings) { s.registerer = r }
}

func newSettings(opts []Option) settings {
	s := settings{writer: os.Stdout}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

type (
	spanFactory   func(ctx context.Context, s settings) (sdktrace.SpanExporter, error)
	readerFactory func(ctx context.Context, s settings) (sdkmetric.Reader, error)
)

var spanExporters = map[string]spanFactory{
	"stdout": func(_ context.Context, s settings) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(s.writer))
	},
	"otlp": func(ctx context.Context, _ settings) (sdktrace.SpanExporter, error) {
		if _, err := endpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	},
	"otlphttp": func(ctx context.Context, _ settings) (sdktrace.SpanExporter, error) {
		if _, err := endpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracehttp.New(ctx)
	},
	// Jaeger ingests OTLP natively; only the endpoint variable differs.
	"jaeger": func(ctx context.Context, _ settings) (sdktrace.SpanExporter, error) {
		url, err := endpoint("OTEL_EXPORTER_JAEGER_ENDPOINT")
		if err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpointURL(url))
	},
	"none": func(context.Context, settings) (sdktrace.SpanExporter, error) {
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))
	},
}

var metricReaders = map[string]readerFactory{
	"stdout": func(_ context.Context, s settings) (sdkmetric.Reader, error) {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(s.writer))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	"otlp": func(ctx context.Context, _ settings) (sdkmetric.Reader, error) {
		if _, err := endpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	},
	// The prometheus exporter is itself a pull reader; scrapes drive it.
	"prometheus": func(_ context.Context, s settings) (sdkmetric.Reader, error) {
		var opts []prometheus.Option
		if s.registerer != nil {
			opts = append(opts, prometheus.WithRegisterer(s.registerer))
		}
		return prometheus.New(opts...)
	},
	"none": func(context.Context, settings) (sdkmetric.Reader, error) {
		return sdkmetric.NewManualReader(), nil
	},
}

// NewTracingExporter returns the span exporter registered under name. An
// empty name selects "none".
func NewTracingExporter(ctx context.Context, name string, opts ...Option) (sdktrace.SpanExporter, error) {
	factory, ok := spanExporters[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown exporter: %q (want one of %s)", name, keys(spanExporters))
	}
	exp, err := factory(ctx, newSettings(opts))
	if err != nil {
		return nil, fmt.Errorf("trace exporter %s: %w", normalize(name), err)
	}
	return exp, nil
}

// NewMetricsReader returns the metric reader registered under name. An empty
// name selects "none".
func NewMetricsReader(ctx context.Context, name string, opts ...Option) (sdkmetric.Reader, error) {
	factory, ok := metricReaders[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("unknown metrics exporter: %q (want one of %s)", name, keys(metricReaders))
	}
	reader, err := factory(ctx, newSettings(opts))
	if err != nil {
		return nil, fmt.Errorf("metrics exporter %s: %w", normalize(name), err)
	}
	return reader, nil
}

// TracingNames lists the accepted trace exporter names.
func TracingNames() []string { return keys(spanExporters) }

// MetricsNames lists the accepted metrics exporter names.
func MetricsNames() []string { return keys(metricReaders) }

func normalize(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "none"
	}
	return name
}

// endpoint returns the first non-empty variable among vars.
func endpoint(vars ...string) (string, error) {
	for _, v := range vars {
		if url := os.Getenv(v); url != "" {
			return url, nil
		}
	}
	return "", fmt.Errorf("endpoint not configured: set %s", strings.Join(vars, " or "))
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
