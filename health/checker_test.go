package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheckConfig_WithDefaults(t *testing.T) {
	cfg := CheckConfig{Name: "db"}.With()

	if cfg.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", cfg.Timeout, DefaultTimeout)
	}
	if cfg.DegradeThreshold != 0 {
		t.Errorf("DegradeThreshold = %v, want 0", cfg.DegradeThreshold)
	}
}

func TestCheckConfig_WithOptions(t *testing.T) {
	base := CheckConfig{Name: "redis", Readiness: true, Timeout: 2 * time.Second}

	cfg := base.With(
		WithName("cache"),
		WithReadiness(false),
		WithTimeout(50*time.Millisecond),
		WithDegradeThreshold(10*time.Millisecond),
	)

	if cfg.Name != "cache" {
		t.Errorf("Name = %q, want 'cache'", cfg.Name)
	}
	if cfg.Readiness {
		t.Error("Readiness should be false")
	}
	if cfg.Timeout != 50*time.Millisecond {
		t.Errorf("Timeout = %v, want 50ms", cfg.Timeout)
	}
	if cfg.DegradeThreshold != 10*time.Millisecond {
		t.Errorf("DegradeThreshold = %v, want 10ms", cfg.DegradeThreshold)
	}
	if base.Name != "redis" {
		t.Error("With must not modify the receiver")
	}
}

func TestCheckConfig_NegativeThreshold(t *testing.T) {
	cfg := CheckConfig{Name: "x"}.With(WithDegradeThreshold(-time.Second))
	if cfg.DegradeThreshold != 0 {
		t.Errorf("DegradeThreshold = %v, want 0", cfg.DegradeThreshold)
	}
}

func TestHealthy(t *testing.T) {
	result := Healthy(15 * time.Millisecond)

	if result.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", result.Status)
	}
	ms, ok := result.ResponseTimeMS()
	if !ok || ms != 15 {
		t.Errorf("ResponseTimeMS() = %v, %v, want 15, true", ms, ok)
	}
	if result.Error != nil {
		t.Errorf("Error = %v, want nil", result.Error)
	}
}

func TestDegraded(t *testing.T) {
	result := Degraded(time.Second)

	if result.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", result.Status)
	}
	if result.ResponseTime == nil || *result.ResponseTime != time.Second {
		t.Errorf("ResponseTime = %v, want 1s", result.ResponseTime)
	}
}

func TestUnhealthy(t *testing.T) {
	testErr := errors.New("connection refused")
	result := Unhealthy(testErr)

	if result.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", result.Status)
	}
	if result.Error != testErr {
		t.Errorf("Error = %v, want %v", result.Error, testErr)
	}
	if _, ok := result.ResponseTimeMS(); ok {
		t.Error("Unhealthy result should not carry a response time")
	}
}

func TestResult_WithMeta(t *testing.T) {
	result := Healthy(time.Millisecond).WithMeta(map[string]any{"key": "value"})

	if result.Meta["key"] != "value" {
		t.Errorf("Meta[key] = %v, want 'value'", result.Meta["key"])
	}
}

func TestResult_WithResponseTime(t *testing.T) {
	result := Unhealthy(errors.New("HTTP 500")).WithResponseTime(250 * time.Microsecond)

	ms, ok := result.ResponseTimeMS()
	if !ok || ms != 0.25 {
		t.Errorf("ResponseTimeMS() = %v, %v, want 0.25, true", ms, ok)
	}
}

func TestCheckFunc(t *testing.T) {
	check := NewCheckFunc(CheckConfig{Name: "test-check", Readiness: true}, func(ctx context.Context) (Result, error) {
		return Healthy(time.Millisecond), nil
	})

	if check.Config().Name != "test-check" {
		t.Errorf("Config().Name = %v, want 'test-check'", check.Config().Name)
	}
	if check.Config().Timeout != DefaultTimeout {
		t.Errorf("Config().Timeout = %v, want default", check.Config().Timeout)
	}

	result, err := check.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("Check() Status = %v, want StatusHealthy", result.Status)
	}
}

func TestCheckFunc_WithContext(t *testing.T) {
	check := NewCheckFunc(CheckConfig{Name: "ctx-check"}, func(ctx context.Context) (Result, error) {
		select {
		case <-ctx.Done():
			return Unhealthy(ctx.Err()), nil
		default:
			return Healthy(0), nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, _ := check.Check(ctx)
	if result.Status != StatusUnhealthy {
		t.Errorf("Check() Status = %v, want StatusUnhealthy", result.Status)
	}
}
