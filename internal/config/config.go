// Package config loads the settings of the pulsecheck binary.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, PULSECHECK_* environment variables and command-line flags.
// Environment keys use a double underscore between sections, for example
// PULSECHECK_REGISTRY__MAX_CONCURRENCY or PULSECHECK_CHECKS__REDIS__URL.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "PULSECHECK_"

// Config is the complete settings tree.
type Config struct {
	Service   ServiceConfig   `koanf:"service"`
	Server    ServerConfig    `koanf:"server"`
	Registry  RegistryConfig  `koanf:"registry"`
	Auth      AuthConfig      `koanf:"auth"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Secrets   SecretsConfig   `koanf:"secrets"`
	Checks    ChecksConfig    `koanf:"checks"`
}

type ServiceConfig struct {
	Name        string `koanf:"name" validate:"required"`
	Environment string `koanf:"environment" validate:"required"`
	Version     string `koanf:"version"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	Prefix          string        `koanf:"prefix" validate:"required,startswith=/"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	Metrics         bool          `koanf:"metrics"`

	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig throttles each client of the health routes. A zero
// RequestsPerSecond disables the limiter.
type RateLimitConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gte=0"`
	Burst             int     `koanf:"burst" validate:"gte=0"`
}

type RegistryConfig struct {
	MaxConcurrency int           `koanf:"max_concurrency" validate:"min=1"`
	QueueWait      time.Duration `koanf:"queue_wait" validate:"gte=0"`
	UniqueNames    bool          `koanf:"unique_names"`
}

// AuthConfig guards the diagnostic routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
	Issuer    string `koanf:"issuer"`
	Audience  string `koanf:"audience"`
}

// Enabled reports whether diagnostic routes require a token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

type TelemetryConfig struct {
	Tracing TracingConfig `koanf:"tracing"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
}

type TracingConfig struct {
	Exporter   string  `koanf:"exporter" validate:"oneof=otlp otlphttp jaeger stdout none"`
	SampleRate float64 `koanf:"sample_rate" validate:"gte=0,lte=1"`
}

type MetricsConfig struct {
	Exporter string `koanf:"exporter" validate:"oneof=otlp prometheus stdout none"`
}

type LogConfig struct {
	Level      string `koanf:"level" validate:"oneof=debug info warn error"`
	Format     string `koanf:"format" validate:"oneof=json console"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb" validate:"min=0"`
	MaxBackups int    `koanf:"max_backups" validate:"min=0"`
	MaxAgeDays int    `koanf:"max_age_days" validate:"min=0"`
}

type SecretsConfig struct {
	// Dir anchors relative secretref:file: references.
	Dir string `koanf:"dir"`
}

// ChecksConfig lists the dependencies to probe. A nil section is not
// probed.
type ChecksConfig struct {
	Database *DatabaseCheck `koanf:"database"`
	Redis    *URLCheck      `koanf:"redis"`
	RabbitMQ *AMQPCheck     `koanf:"rabbitmq"`
	MongoDB  *URLCheck      `koanf:"mongodb"`
	Queue    *QueueCheck    `koanf:"queue"`
	HTTP     []HTTPCheck    `koanf:"http" validate:"dive"`
	Memory   *MemoryCheck   `koanf:"memory"`
}

// Count returns the number of configured checks.
func (c ChecksConfig) Count() int {
	n := len(c.HTTP)
	for _, set := range []bool{c.Database != nil, c.Redis != nil, c.RabbitMQ != nil, c.MongoDB != nil, c.Queue != nil, c.Memory != nil} {
		if set {
			n++
		}
	}
	return n
}

// CheckOptions overrides the defaults of a check variant. Zero values keep
// the variant default.
type CheckOptions struct {
	Name             string        `koanf:"name"`
	Timeout          time.Duration `koanf:"timeout" validate:"min=0"`
	DegradeThreshold time.Duration `koanf:"degrade_threshold" validate:"min=0"`
	Readiness        *bool         `koanf:"readiness"`
}

type URLCheck struct {
	CheckOptions `koanf:",squash"`
	URL          string `koanf:"url" validate:"required"`
}

type DatabaseCheck struct {
	CheckOptions `koanf:",squash"`
	Driver       string `koanf:"driver" validate:"oneof=sqlite postgres"`
	URL          string `koanf:"url" validate:"required"`
}

type AMQPCheck struct {
	CheckOptions `koanf:",squash"`
	URL          string `koanf:"url" validate:"required"`
	Exchange     string `koanf:"exchange"`
	ExchangeKind string `koanf:"exchange_kind" validate:"omitempty,oneof=direct fanout topic headers"`
}

type QueueCheck struct {
	CheckOptions   `koanf:",squash"`
	URL            string `koanf:"url" validate:"required"`
	AllowNoWorkers bool   `koanf:"allow_no_workers"`
}

type HTTPCheck struct {
	CheckOptions   `koanf:",squash"`
	URL            string            `koanf:"url" validate:"required"`
	ExpectedStatus int               `koanf:"expected_status" validate:"omitempty,min=100,max=599"`
	Headers        map[string]string `koanf:"headers"`
}

type MemoryCheck struct {
	CheckOptions      `koanf:",squash"`
	WarningThreshold  float64 `koanf:"warning_threshold" validate:"gte=0,lt=1"`
	CriticalThreshold float64 `koanf:"critical_threshold" validate:"gte=0,lt=1"`
	MaxAllocBytes     uint64  `koanf:"max_alloc_bytes"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"service.name":                  "pulsecheck",
		"service.environment":           "development",
		"server.addr":                   ":8080",
		"server.prefix":                 "/health",
		"server.read_timeout":           "5s",
		"server.write_timeout":          "30s",
		"server.shutdown_timeout":       "10s",
		"server.metrics":                true,
		"server.rate_limit.burst":       20,
		"registry.max_concurrency":      10,
		"telemetry.tracing.exporter":    "none",
		"telemetry.tracing.sample_rate": 1.0,
		"telemetry.metrics.exporter":    "prometheus",
		"telemetry.log.level":           "info",
		"telemetry.log.format":          "json",
		"telemetry.log.max_size_mb":     100,
		"telemetry.log.max_backups":     3,
		"telemetry.log.max_age_days":    28,
	}
}

// FlagKeys maps command-line flag names to settings keys. Flags not listed
// are not settings.
var FlagKeys = map[string]string{
	"addr":            "server.addr",
	"environment":     "service.environment",
	"max-concurrency": "registry.max_concurrency",
	"log-level":       "telemetry.log.level",
	"log-format":      "telemetry.log.format",
	"trace-exporter":  "telemetry.tracing.exporter",
	"secrets-dir":     "secrets.dir",
}

// Load reads the layered settings. path and flags may be empty.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := FlagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid settings")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate rejects malformed settings.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if m := c.Checks.Memory; m != nil && m.WarningThreshold > 0 && m.CriticalThreshold > 0 &&
		m.CriticalThreshold < m.WarningThreshold {
		return fmt.Errorf("%w: checks.memory.critical_threshold below warning_threshold", ErrInvalid)
	}
	return nil
}
