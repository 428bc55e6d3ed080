// Package benchmark - Functionality for running benchmarks.
package benchmark

import (
	"runtime"
	"time"
)

// PerformanceMetrics captures the outcome of one scenario.
type PerformanceMetrics struct {
	Scenario  Scenario  `json:"scenario"`
	Timestamp time.Time `json:"timestamp"`
	// TotalDuration is the wall time of the measured iterations.
	TotalDuration time.Duration `json:"total_duration"`
	// SetupDuration, InferenceDuration and PostProcessDuration are per-call means over
	// the successful iterations.
	SetupDuration       time.Duration `json:"setup_duration"`
	InferenceDuration   time.Duration `json:"inference_duration"`
	PostProcessDuration time.Duration `json:"post_process_duration"`
	FramesPerSecond     float64       `json:"frames_per_second"`
	MemoryStats         MemoryMetrics `json:"memory_stats"`
	NumCPU              int           `json:"num_cpu"`
	DetectionCount      int           `json:"detection_count"`
	ErrorRate           float64       `json:"error_rate"`
}

// MemoryMetrics captures memory usage statistics
type MemoryMetrics struct {
	AllocBytes      uint64 `json:"alloc_bytes"`
	TotalAllocBytes uint64 `json:"total_alloc_bytes"`
	SysBytes        uint64 `json:"sys_bytes"`
	NumGC           uint32 `json:"num_gc"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
}

// memoryDelta reports end in absolute terms, except for the counters that only make
// sense relative to start.
func memoryDelta(start, end *runtime.MemStats) MemoryMetrics {
	return MemoryMetrics{
		AllocBytes:      end.Alloc,
		TotalAllocBytes: end.TotalAlloc - start.TotalAlloc,
		SysBytes:        end.Sys,
		NumGC:           end.NumGC - start.NumGC,
		HeapAllocBytes:  end.HeapAlloc,
		HeapSysBytes:    end.HeapSys,
	}
}

func numCPU() int { return runtime.NumCPU() }

func readMemStats() *runtime.MemStats {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	return &m
}
