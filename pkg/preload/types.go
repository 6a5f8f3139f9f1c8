package preload

import (
	"context"
	"errors"
	"time"
)

// ============================================================================
// Errors
// ============================================================================

var (
	// ErrEmptyItems is returned when Preload is called with no items.
	ErrEmptyItems = errors.New("preload: item list is empty")

	// ErrInvalidIndex is returned when the current index is outside [0, len(items)).
	ErrInvalidIndex = errors.New("preload: current index out of range")
)

// ============================================================================
// Media Types
// ============================================================================

// Kind is the media kind of a gallery item.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether k is a supported media kind.
func (k Kind) Valid() bool {
	return k == KindImage || k == KindVideo
}

// Item is one entry of the ordered sequence the viewer pages through.
type Item struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Src  string `json:"src" yaml:"src" validate:"required"`
	Kind Kind   `json:"kind" yaml:"kind" validate:"required,oneof=image video"`
}

// Key returns the cache identity of the item.
func (i Item) Key() Key {
	return Key{ID: i.ID, Src: i.Src}
}

// Key identifies a cache entry. Two items sharing an ID but pointing at
// different sources are distinct entries, so a stale URL never aliases a
// fresh one.
type Key struct {
	ID  string `json:"id"`
	Src string `json:"src"`
}

// String returns "id@src".
func (k Key) String() string {
	return k.ID + "@" + k.Src
}

// ============================================================================
// Element and Loader
// ============================================================================

// Element is an opaque handle to prefetched media. The cache owns every
// element it creates; the viewer only borrows one after a successful Get.
type Element interface {
	// Kind returns the media kind of the element.
	Kind() Kind

	// Source returns the locator the element was loaded from, or "" once
	// the element has been released.
	Source() string

	// Release detaches the element from its source. For videos this stops
	// any transfer still in progress. Release must be idempotent.
	Release()
}

// Loader begins fetching a media item.
//
// Load must return immediately with the element handle and arrange for done
// to be called exactly once when the fetch completes (nil) or fails. done
// may be called from any goroutine, including synchronously before Load
// returns.
type Loader interface {
	Load(ctx context.Context, item Item, done func(err error)) Element
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, item Item, done func(err error)) Element

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, item Item, done func(err error)) Element {
	return f(ctx, item, done)
}

// Loaders maps each media kind to the loader that prefetches it.
type Loaders map[Kind]Loader

// ============================================================================
// Entry State
// ============================================================================

// EntryState is the lifecycle state of a cache entry.
//
// Pending is the only non-terminal state. Loaded and Failed are terminal:
// a failed entry is never retried and ages out through normal eviction.
type EntryState int

const (
	StatePending EntryState = iota
	StateLoaded
	StateFailed
)

// String returns the string representation of EntryState.
func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "Pending"
	case StateLoaded:
		return "Loaded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// ============================================================================
// Snapshots
// ============================================================================

// Snapshot is a point-in-time view of the cache counters and timers.
// It is rebuilt on every call and never stored.
type Snapshot struct {
	// LoadTime is the last interval bracketed by StartTimer/EndTimer.
	LoadTime time.Duration `json:"load_time" yaml:"load_time"`

	// NavigationTime is the last interval bracketed by the navigation timer.
	NavigationTime time.Duration `json:"navigation_time" yaml:"navigation_time"`

	// PreloadCount is the number of prefetches that completed successfully.
	PreloadCount int `json:"preload_count" yaml:"preload_count"`

	// MediaCacheSize is the current number of entries in the cache.
	MediaCacheSize int `json:"media_cache_size" yaml:"media_cache_size"`

	// MemoryUsage is nil when the host exposes no heap statistics.
	MemoryUsage *HeapStats `json:"memory_usage,omitempty" yaml:"memory_usage,omitempty"`
}

// Export is a serializable snapshot suitable for logging or display.
type Export struct {
	Metrics   Snapshot   `json:"metrics" yaml:"metrics"`
	Memory    *HeapStats `json:"memory,omitempty" yaml:"memory,omitempty"`
	CacheSize int        `json:"cache_size" yaml:"cache_size"`
	Timestamp time.Time  `json:"timestamp" yaml:"timestamp"`
}
