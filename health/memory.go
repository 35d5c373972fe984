package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/jonwraymond/pulsecheck/resilience"
)

// MemoryCheckConfig configures the memory health check.
type MemoryCheckConfig struct {
	// WarningThreshold is the fraction of MaxAlloc that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.8 (80%)
	WarningThreshold float64

	// CriticalThreshold is the fraction of MaxAlloc that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxAlloc is the maximum expected heap allocation in bytes.
	// If zero, the memory obtained from the OS is used.
	// Default: 0 (auto-detect)
	MaxAlloc uint64
}

// MemoryCheck reports heap usage of the current process.
//
// It is a diagnostic check: by default it does not take part in readiness.
type MemoryCheck struct {
	config    CheckConfig
	memConfig MemoryCheckConfig
	readStats func(*runtime.MemStats)
}

// NewMemoryCheck creates a new memory health check named "memory".
func NewMemoryCheck(config MemoryCheckConfig, opts ...Option) *MemoryCheck {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold + 0.1
		if config.CriticalThreshold > 1 {
			config.CriticalThreshold = 0.99
		}
	}

	return &MemoryCheck{
		config:    CheckConfig{Name: "memory"}.With(opts...),
		memConfig: config,
		readStats: runtime.ReadMemStats,
	}
}

// Config returns the configuration of this check.
func (m *MemoryCheck) Config() CheckConfig {
	return m.config
}

// Check performs the memory health check.
func (m *MemoryCheck) Check(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Unhealthy(ProbeFailure("Memory", m.config.Timeout, err)), nil
	}

	start := time.Now()
	var stats runtime.MemStats
	m.readStats(&stats)
	elapsed := time.Since(start)

	maxAlloc := m.memConfig.MaxAlloc
	if maxAlloc == 0 {
		maxAlloc = stats.Sys
	}
	if maxAlloc == 0 {
		return Classify(m.config, elapsed).WithMeta(map[string]any{
			"alloc_bytes": stats.Alloc,
			"num_gc":      stats.NumGC,
		}), nil
	}

	usage := float64(stats.Alloc) / float64(maxAlloc)
	meta := map[string]any{
		"alloc_bytes":      stats.Alloc,
		"max_alloc":        maxAlloc,
		"usage_percent":    usage * 100,
		"heap_objects":     stats.HeapObjects,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
		"abandoned_probes": resilience.Abandoned(),
	}

	switch {
	case usage >= m.memConfig.CriticalThreshold:
		return Unhealthy(fmt.Errorf("memory usage critical: %.1f%%", usage*100)).
			WithResponseTime(elapsed).
			WithMeta(meta), nil
	case usage >= m.memConfig.WarningThreshold:
		return Degraded(elapsed).WithMeta(meta), nil
	default:
		return Classify(m.config, elapsed).WithMeta(meta), nil
	}
}
