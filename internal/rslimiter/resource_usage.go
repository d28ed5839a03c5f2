package rslimiter

import (
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceUsage represents current process and system resource usage
type ResourceUsage struct {
	AllocMB              int64   // Currently allocated memory by application
	SysMB                int64   // System memory used by Go runtime
	Goroutines           int     // Number of goroutines
	GCCount              int64   // Number of GC cycles
	SystemMemUsedMB      int64   // System memory used (MB)
	SystemMemTotalMB     int64   // Total system memory (MB)
	SystemMemUsedPercent float64 // System memory used percentage
	CPUUsagePercent      float64 // CPU usage percentage
}

// MemorySampler reads system memory statistics
type MemorySampler func() (*mem.VirtualMemoryStat, error)

// GetResourceUsage returns current resource usage statistics. CPU usage is
// sampled over cpuWindow; zero skips it.
func GetResourceUsage(sampleMemory MemorySampler, cpuWindow time.Duration) ResourceUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	usage := ResourceUsage{
		AllocMB:    int64(m.Alloc / 1024 / 1024),
		SysMB:      int64(m.Sys / 1024 / 1024),
		Goroutines: runtime.NumGoroutine(),
		GCCount:    int64(m.NumGC),
	}

	if sampleMemory == nil {
		sampleMemory = mem.VirtualMemory
	}
	if vmStat, err := sampleMemory(); err == nil {
		usage.SystemMemUsedMB = int64(vmStat.Used / 1024 / 1024)
		usage.SystemMemTotalMB = int64(vmStat.Total / 1024 / 1024)
		usage.SystemMemUsedPercent = vmStat.UsedPercent
	}

	if cpuWindow > 0 {
		if cpuPercents, err := cpu.Percent(cpuWindow, false); err == nil && len(cpuPercents) > 0 {
			usage.CPUUsagePercent = cpuPercents[0]
		}
	}

	return usage
}
