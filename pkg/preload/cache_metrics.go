package preload

import (
	"time"
)

// EvictReason says why an entry left the cache.
type EvictReason string

const (
	EvictCapacity EvictReason = "capacity"
	EvictPressure EvictReason = "pressure"
	EvictReplace  EvictReason = "replace"
	EvictClear    EvictReason = "clear"
)

// CacheMetrics observes preload cache activity.
//
// Implementations can use this interface to export counters to Prometheus
// or collect them in tests. It is optional: a nil CacheMetrics disables
// collection entirely.
type CacheMetrics interface {
	// ObservePreload records a finished prefetch and how long it took.
	ObservePreload(kind Kind, success bool, duration time.Duration)

	// RecordIssued records a prefetch being started.
	RecordIssued(kind Kind)

	// RecordEviction records an entry being released.
	RecordEviction(kind Kind, reason EvictReason)

	// RecordLookup records a Get call.
	RecordLookup(hit bool)

	// RecordAdmissionRejected records a Preload call cut short by memory pressure.
	RecordAdmissionRejected()

	// RecordCacheSize records the current entry count.
	RecordCacheSize(entries int)

	// ObserveNavigation records a completed navigation interval.
	ObserveNavigation(duration time.Duration)

	// ObserveLoad records a completed load interval.
	ObserveLoad(duration time.Duration)
}
