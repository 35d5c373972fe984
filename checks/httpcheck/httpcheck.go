// Package httpcheck provides a health check for downstream HTTP services.
package httpcheck

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/urlutil"
	"github.com/jonwraymond/pulsecheck/resilience"
)

const (
	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 2 * time.Second

	// DefaultDegradeThreshold marks slower responses as degraded.
	DefaultDegradeThreshold = 500 * time.Millisecond

	label = "HTTP dep"
)

// Config describes the request and the expected answer.
type Config struct {
	// ExpectedStatus is the only status code considered healthy.
	// Default: 200
	ExpectedStatus int

	// Headers are added to every request.
	Headers map[string]string

	// Client sends the request. Default: a client with an otelhttp
	// transport, so probes show up as client spans.
	Client *http.Client
}

// Check issues a GET and compares the status code.
type Check struct {
	config health.CheckConfig
	url    string
	target string
	http   Config
}

// New returns a check for rawURL. The check is named after the URL's host
// unless a name option is given.
func New(rawURL string, config Config, opts ...health.Option) *Check {
	if config.ExpectedStatus == 0 {
		config.ExpectedStatus = http.StatusOK
	}
	if config.Client == nil {
		config.Client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	name := urlutil.Host(rawURL)
	if name == "" {
		name = "http"
	}

	return &Check{
		config: health.CheckConfig{
			Name:             name,
			Readiness:        true,
			Timeout:          DefaultTimeout,
			DegradeThreshold: DefaultDegradeThreshold,
		}.With(opts...),
		url:    rawURL,
		target: urlutil.Redact(rawURL),
		http:   config,
	}
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe. A reply with an unexpected status code is unhealthy
// but still reports how long the service took to answer.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	var code int

	start := time.Now()
	err := resilience.ExecuteWithTimeout(ctx, c.config.Timeout, func(ctx context.Context) error {
		var err error
		code, err = c.get(ctx)
		return err
	})
	elapsed := time.Since(start)

	meta := map[string]any{"target": c.target}
	if err != nil {
		return health.Unhealthy(health.ProbeFailure(label, c.config.Timeout, err)).WithMeta(meta), nil
	}

	meta["status_code"] = code
	if code != c.http.ExpectedStatus {
		return health.Unhealthy(fmt.Errorf("HTTP %d (expected %d)", code, c.http.ExpectedStatus)).
			WithResponseTime(elapsed).
			WithMeta(meta), nil
	}
	return health.Classify(c.config, elapsed).WithMeta(meta), nil
}

func (c *Check) get(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return 0, err
	}
	for k, v := range c.http.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return resp.StatusCode, nil
}
