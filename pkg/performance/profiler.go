// Package performance measures the resource cost of parse runs: wall time,
// CPU time, resident memory and garbage collection, plus optional pprof
// profiles.
package performance

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceMonitor samples the resource usage of the current process.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewResourceMonitor creates a resource monitor for the current process.
func NewResourceMonitor() (*ResourceMonitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pids fit in int32
	if err != nil {
		return nil, fmt.Errorf("failed to inspect process: %w", err)
	}
	rm := &ResourceMonitor{process: proc, startTime: time.Now()}
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm, nil
}

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent            float64
	MemoryRSS             uint64
	MemoryVMS             uint64
	SystemMemoryPercent   float64
	SystemMemoryAvailable uint64
	GoroutineCount        int
	ThreadCount           int32
	OpenFDs               int32
}

// Usage returns the current usage. CPU percent is averaged since the monitor
// was created and may exceed 100 on multicore machines. Fields the platform
// cannot report are left zero.
func (rm *ResourceMonitor) Usage() *ResourceUsage {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	usage := &ResourceUsage{GoroutineCount: runtime.NumGoroutine()}

	if cpuTime, err := rm.process.Times(); err == nil {
		if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
			usage.CPUPercent = (cpuTime.Total() - rm.startCPUTime) / elapsed * 100
		}
	}
	if memInfo, err := rm.process.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
		usage.MemoryVMS = memInfo.VMS
	}
	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
		usage.SystemMemoryAvailable = vmStat.Available
	}
	usage.ThreadCount, _ = rm.process.NumThreads()
	usage.OpenFDs, _ = rm.process.NumFDs()
	return usage
}

// Report is the outcome of Measure.
type Report struct {
	Name      string
	Duration  time.Duration
	Records   int64
	Bytes     int64
	GCCount   uint32
	GCPause   time.Duration
	HeapAlloc uint64
	Resources *ResourceUsage
}

// RecordsPerSecond returns the record throughput.
func (r *Report) RecordsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Records) / r.Duration.Seconds()
}

// BytesPerSecond returns the input throughput.
func (r *Report) BytesPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Bytes) / r.Duration.Seconds()
}

// String renders the report for terminals.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Performance Profile: %s\n", r.Name)
	fmt.Fprintf(&sb, "Duration:   %v\n", r.Duration.Round(time.Microsecond))
	fmt.Fprintf(&sb, "Records:    %d (%.0f/sec)\n", r.Records, r.RecordsPerSecond())
	fmt.Fprintf(&sb, "Input:      %s (%s/sec)\n", FormatBytes(uint64(max(r.Bytes, 0))), FormatBytes(uint64(r.BytesPerSecond())))
	fmt.Fprintf(&sb, "Heap:       %s\n", FormatBytes(r.HeapAlloc))
	fmt.Fprintf(&sb, "GC:         %d cycles, %v paused\n", r.GCCount, r.GCPause)
	if r.Resources != nil {
		fmt.Fprintf(&sb, "CPU:        %.1f%%\n", r.Resources.CPUPercent)
		fmt.Fprintf(&sb, "RSS:        %s\n", FormatBytes(r.Resources.MemoryRSS))
		fmt.Fprintf(&sb, "Goroutines: %d\n", r.Resources.GoroutineCount)
	}
	return sb.String()
}

// Measure runs fn and reports its cost. fn returns the number of records and
// input bytes it processed.
func Measure(name string, fn func() (records, bytes int64, err error)) (*Report, error) {
	monitor, monErr := NewResourceMonitor()

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	start := time.Now()

	records, bytes, err := fn()

	elapsed := time.Since(start)
	runtime.ReadMemStats(&after)

	report := &Report{
		Name:      name,
		Duration:  elapsed,
		Records:   records,
		Bytes:     bytes,
		GCCount:   after.NumGC - before.NumGC,
		GCPause:   time.Duration(after.PauseTotalNs - before.PauseTotalNs),
		HeapAlloc: after.HeapAlloc,
	}
	if monErr == nil {
		report.Resources = monitor.Usage()
	}
	return report, err
}

// StartCPUProfile writes a CPU profile to path until the returned stop
// function is called.
func StartCPUProfile(path string) (func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to start CPU profile: %w", err)
	}
	return func() error {
		pprof.StopCPUProfile()
		return f.Close()
	}, nil
}

// WriteHeapProfile writes a heap profile to path after a GC.
func WriteHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create heap profile: %w", err)
	}
	defer f.Close()
	runtime.GC()
	return pprof.WriteHeapProfile(f)
}

// FormatBytes formats a byte count with binary units.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
