package preload

import (
	"math"
	"runtime"
	"runtime/debug"
)

// DefaultMemoryThreshold is the heap usage ratio at which new prefetches
// are refused.
const DefaultMemoryThreshold = 0.80

// HeapStats is a host heap reading in bytes.
type HeapStats struct {
	// Used is the heap currently in use.
	Used uint64 `json:"used" yaml:"used"`

	// Total is the memory obtained from the host.
	Total uint64 `json:"total" yaml:"total"`

	// Limit is the budget the process is expected to stay under.
	Limit uint64 `json:"limit" yaml:"limit"`
}

// Ratio returns Used/Limit, or 0 when no limit is known.
func (h HeapStats) Ratio() float64 {
	if h.Limit == 0 {
		return 0
	}
	return float64(h.Used) / float64(h.Limit)
}

// HeapStatsProvider exposes host heap statistics, when the host has any.
type HeapStatsProvider interface {
	// HeapStats returns the current reading and whether one is available.
	HeapStats() (HeapStats, bool)
}

// IsMemoryAcceptable reports whether new prefetch work may be issued.
//
// It fails open: without a provider, a reading, or a limit, memory is
// considered acceptable and capacity eviction alone bounds the cache.
// Otherwise the usage ratio must be strictly below threshold.
func IsMemoryAcceptable(p HeapStatsProvider, threshold float64) bool {
	if p == nil {
		return true
	}
	stats, ok := p.HeapStats()
	if !ok || stats.Limit == 0 {
		return true
	}
	return stats.Ratio() < threshold
}

// RuntimeHeapStats reads the Go runtime heap against the soft memory limit
// (GOMEMLIMIT / debug.SetMemoryLimit). When no limit has been configured the
// runtime has nothing to compare against and no reading is reported.
type RuntimeHeapStats struct{}

// HeapStats implements HeapStatsProvider.
func (RuntimeHeapStats) HeapStats() (HeapStats, bool) {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return HeapStats{}, false
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return HeapStats{
		Used:  ms.HeapAlloc,
		Total: ms.Sys,
		Limit: uint64(limit),
	}, true
}

// StaticHeapStats reports a fixed reading. A zero value reports nothing.
type StaticHeapStats struct {
	Stats HeapStats
	OK    bool
}

// HeapStats implements HeapStatsProvider.
func (s StaticHeapStats) HeapStats() (HeapStats, bool) {
	return s.Stats, s.OK
}

// HeapStatsFunc adapts a function to HeapStatsProvider.
type HeapStatsFunc func() (HeapStats, bool)

// HeapStats calls f.
func (f HeapStatsFunc) HeapStats() (HeapStats, bool) {
	return f()
}
