// Package metrics provides host resource metrics for the status endpoint.
package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemMetrics represents current system resource usage.
type SystemMetrics struct {
	CPU     CPUMetrics    `json:"cpu"`
	Memory  MemoryMetrics `json:"memory"`
	Disks   []DiskMetrics `json:"disks"`
	Uptime  int64         `json:"uptime"`   // seconds
	LoadAvg []float64     `json:"load_avg"` // 1, 5, 15 min
}

// CPUMetrics represents CPU usage information.
type CPUMetrics struct {
	UsagePercent float64 `json:"usage_percent"`
	Cores        int     `json:"cores"`
}

// MemoryMetrics represents memory usage information.
type MemoryMetrics struct {
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	Available   uint64  `json:"available"`
	UsedPercent float64 `json:"used_percent"`
}

// DiskMetrics represents disk usage information.
type DiskMetrics struct {
	Device      string  `json:"device"`
	MountPoint  string  `json:"mount_point"`
	Total       uint64  `json:"total"`
	Used        uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// GetSystemMetrics collects current system metrics, parallelizing the slow
// collectors.
func GetSystemMetrics(ctx context.Context) (*SystemMetrics, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	metrics := &SystemMetrics{}
	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		if ctx.Err() != nil {
			return
		}
		cpuPercent, err := cpu.Percent(200*time.Millisecond, false)
		if err == nil && len(cpuPercent) > 0 {
			mu.Lock()
			metrics.CPU.UsagePercent = cpuPercent[0]
			mu.Unlock()
		}
		if cores, err := cpu.Counts(true); err == nil {
			mu.Lock()
			metrics.CPU.Cores = cores
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if vm, err := mem.VirtualMemory(); err == nil {
			mu.Lock()
			metrics.Memory = MemoryMetrics{
				Total:       vm.Total,
				Used:        vm.Used,
				Available:   vm.Available,
				UsedPercent: vm.UsedPercent,
			}
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		partitions, err := disk.Partitions(false)
		if err != nil {
			return
		}
		for _, p := range partitions {
			// Skip pseudo filesystems
			if strings.HasPrefix(p.Fstype, "squash") || strings.HasPrefix(p.Fstype, "overlay") {
				continue
			}
			usage, err := disk.Usage(p.Mountpoint)
			if err != nil {
				continue
			}
			mu.Lock()
			metrics.Disks = append(metrics.Disks, DiskMetrics{
				Device:      p.Device,
				MountPoint:  p.Mountpoint,
				Total:       usage.Total,
				Used:        usage.Used,
				UsedPercent: usage.UsedPercent,
			})
			mu.Unlock()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if uptime, err := host.Uptime(); err == nil {
			mu.Lock()
			metrics.Uptime = int64(uptime)
			mu.Unlock()
		}
		if avg, err := load.Avg(); err == nil {
			mu.Lock()
			metrics.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15}
			mu.Unlock()
		}
	}()

	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return metrics, nil
}
