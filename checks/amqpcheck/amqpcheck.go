// Package amqpcheck provides a health check for AMQP 0-9-1 brokers such as
// RabbitMQ.
package amqpcheck

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jonwraymond/pulsecheck/health"
	"github.com/jonwraymond/pulsecheck/internal/urlutil"
)

const (
	// DefaultName is the default check name.
	DefaultName = "rabbitmq"

	// DefaultTimeout bounds a single probe.
	DefaultTimeout = 3 * time.Second

	// DefaultDegradeThreshold marks slower handshakes as degraded.
	DefaultDegradeThreshold = time.Second

	// DefaultExchangeKind is used for the passive declare when Config leaves
	// it empty.
	DefaultExchangeKind = amqp.ExchangeDirect

	label = "RabbitMQ"
)

// Config selects what the probe verifies beyond opening a channel.
type Config struct {
	// Exchange, when set, must exist on the broker. It is declared
	// passively, so the probe never creates it.
	Exchange string

	// ExchangeKind is the kind used in the passive declare.
	// Default: "direct"
	ExchangeKind string
}

// Check dials the broker, opens a channel and optionally verifies an
// exchange. The connection lives for a single probe.
type Check struct {
	config health.CheckConfig
	url    string
	target string
	amqp   Config
}

// New returns a check for the broker at rawURL.
func New(rawURL string, config Config, opts ...health.Option) *Check {
	if config.ExchangeKind == "" {
		config.ExchangeKind = DefaultExchangeKind
	}
	return &Check{
		config: health.CheckConfig{
			Name:             DefaultName,
			Readiness:        true,
			Timeout:          DefaultTimeout,
			DegradeThreshold: DefaultDegradeThreshold,
		}.With(opts...),
		url:    rawURL,
		target: urlutil.Redact(rawURL),
		amqp:   config,
	}
}

// Config returns the configuration of this check.
func (c *Check) Config() health.CheckConfig {
	return c.config
}

// Check runs the probe.
func (c *Check) Check(ctx context.Context) (health.Result, error) {
	result := health.Probe(ctx, c.config, label, c.probe)

	meta := map[string]any{"target": c.target}
	if c.amqp.Exchange != "" {
		meta["exchange"] = c.amqp.Exchange
	}
	return result.WithMeta(meta), nil
}

func (c *Check) probe(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{
		Dial:       amqp.DefaultDial(c.config.Timeout),
		Properties: amqp.Table{"connection_name": "pulsecheck"},
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := ctx.Err(); err != nil {
		return err
	}

	if c.amqp.Exchange == "" {
		return nil
	}
	err = ch.ExchangeDeclarePassive(
		c.amqp.Exchange,     // name
		c.amqp.ExchangeKind, // kind
		true,                // durable
		false,               // auto-deleted
		false,               // internal
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("exchange %q: %w", c.amqp.Exchange, err)
	}
	return nil
}
