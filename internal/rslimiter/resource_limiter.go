// Package rslimiter decides whether the process may start new scans and logs
// resource usage periodically.
package rslimiter

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/dev-fuadhasan/openapi/internal/config"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

// cpuSampleWindow is how long the periodic check samples CPU usage
const cpuSampleWindow = 200 * time.Millisecond

// ResourceLimiter gates admission of new scans on system memory and
// goroutine count. A disabled limiter admits everything.
type ResourceLimiter struct {
	config           config.ResourceLimiterConfig
	logger           zerolog.Logger
	sampleMemory     MemorySampler
	ctx              context.Context
	cancel           context.CancelFunc
	wg               sync.WaitGroup
	goroutineWarning int
	isRunning        bool
	mu               sync.RWMutex
}

// NewResourceLimiter creates a new resource limiter
func NewResourceLimiter(cfg config.ResourceLimiterConfig, logger zerolog.Logger) *ResourceLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	// Apply default values for any zero-value fields in the config
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = config.DefaultResourceCheckInterval
	}
	if cfg.SystemMemThreshold == 0 {
		cfg.SystemMemThreshold = config.DefaultSystemMemThreshold
	}
	if cfg.MaxGoroutines == 0 {
		cfg.MaxGoroutines = config.DefaultResourceMaxGoroutines
	}
	if cfg.GoroutineWarningRate == 0 {
		cfg.GoroutineWarningRate = config.DefaultResourceGoroutineWarningRatio
	}

	return &ResourceLimiter{
		config:           cfg,
		logger:           logger.With().Str("component", "ResourceLimiter").Logger(),
		sampleMemory:     mem.VirtualMemory,
		ctx:              ctx,
		cancel:           cancel,
		goroutineWarning: int(float64(cfg.MaxGoroutines) * cfg.GoroutineWarningRate),
	}
}

// SetMemorySampler replaces the system memory source
func (rl *ResourceLimiter) SetMemorySampler(sampler MemorySampler) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.sampleMemory = sampler
}

func (rl *ResourceLimiter) sampler() MemorySampler {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return rl.sampleMemory
}

// Start begins periodic resource logging
func (rl *ResourceLimiter) Start() {
	rl.mu.Lock()
	if rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = true
	rl.mu.Unlock()

	rl.wg.Add(1)
	go rl.monitorResources()

	rl.logger.Info().
		Bool("enabled", rl.config.Enabled).
		Int("max_goroutines", rl.config.MaxGoroutines).
		Dur("check_interval", rl.config.CheckInterval).
		Float64("system_mem_threshold", rl.config.SystemMemThreshold).
		Msg("Resource limiter started")
}

// Stop stops the resource monitor
func (rl *ResourceLimiter) Stop() {
	rl.mu.Lock()
	if !rl.isRunning {
		rl.mu.Unlock()
		return
	}
	rl.isRunning = false
	rl.mu.Unlock()

	rl.cancel()
	rl.wg.Wait()
	rl.logger.Info().Msg("Resource limiter stopped")
}

// Admit returns an error wrapping common.ErrServiceUnavailable when a new
// scan should be refused
func (rl *ResourceLimiter) Admit() error {
	if rl == nil || !rl.config.Enabled {
		return nil
	}
	if exceeded, err := rl.CheckSystemMemoryLimit(); err != nil {
		rl.logger.Error().Err(err).Msg("Failed to check system memory limit")
	} else if exceeded {
		return common.WrapError(common.ErrServiceUnavailable, "system memory threshold exceeded")
	}
	if err := rl.CheckGoroutineLimit(); err != nil {
		return common.WrapError(common.ErrServiceUnavailable, err.Error())
	}
	return nil
}

// CheckSystemMemoryLimit checks if system memory usage exceeds threshold
func (rl *ResourceLimiter) CheckSystemMemoryLimit() (bool, error) {
	vmStat, err := rl.sampler()()
	if err != nil {
		return false, fmt.Errorf("failed to get system memory stats: %w", err)
	}

	usedPercent := vmStat.UsedPercent / 100.0

	if usedPercent > rl.config.SystemMemThreshold {
		rl.logger.Warn().
			Float64("used_percent", usedPercent*100).
			Float64("threshold_percent", rl.config.SystemMemThreshold*100).
			Uint64("used_mb", vmStat.Used/1024/1024).
			Uint64("total_mb", vmStat.Total/1024/1024).
			Msg("System memory usage exceeded threshold")
		return true, nil
	}

	return false, nil
}

// CheckGoroutineLimit checks if current goroutine count exceeds limit
func (rl *ResourceLimiter) CheckGoroutineLimit() error {
	current := runtime.NumGoroutine()

	if current > rl.config.MaxGoroutines {
		return fmt.Errorf("goroutine limit exceeded: current %d > limit %d", current, rl.config.MaxGoroutines)
	}

	return nil
}

// monitorResources runs the resource monitoring loop
func (rl *ResourceLimiter) monitorResources() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.ctx.Done():
			return
		case <-ticker.C:
			rl.checkAndLogResourceUsage()
		}
	}
}

// checkAndLogResourceUsage logs current usage and warns near the limits
func (rl *ResourceLimiter) checkAndLogResourceUsage() {
	usage := GetResourceUsage(rl.sampler(), cpuSampleWindow)

	if usage.Goroutines > rl.goroutineWarning {
		rl.logger.Warn().
			Int("current", usage.Goroutines).
			Int("warning_threshold", rl.goroutineWarning).
			Int("limit", rl.config.MaxGoroutines).
			Msg("Goroutine count approaching limit")
	}
	if usage.SystemMemUsedPercent/100.0 > rl.config.SystemMemThreshold {
		rl.logger.Warn().
			Float64("system_mem_percent", usage.SystemMemUsedPercent).
			Msg("System memory above threshold, new scans are refused")
	}

	rl.logger.Debug().
		Int64("alloc_mb", usage.AllocMB).
		Int64("sys_mb", usage.SysMB).
		Int("goroutines", usage.Goroutines).
		Int64("gc_count", usage.GCCount).
		Float64("system_mem_percent", usage.SystemMemUsedPercent).
		Float64("cpu_percent", usage.CPUUsagePercent).
		Msg("Current resource usage")
}
