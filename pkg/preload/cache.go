// Package preload implements the prefetch cache behind the fullscreen media
// viewer.
//
// While a user pages through a gallery, the cache prefetches the items
// around the current position so the next image or video is already local
// when the viewer asks for it. The cache is intentionally small:
//
//   - A bounded, insertion-ordered store keyed by (item id, source)
//   - A fixed neighborhood of at most five indices per navigation
//   - Admission control against host heap statistics before each prefetch
//   - Oldest-inserted eviction, releasing media handles as entries leave
//   - Stopwatch metrics for load and navigation latency
//
// Prefetching is advisory. A miss, a failed load, or a refused prefetch
// only means the viewer falls back to loading the item directly.
//
// Every Cache is an explicit object owned by one viewer session; there is
// no package-level instance.
package preload

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/marmos91/mediaview/internal/logger"
)

// DefaultCapacity is the entry budget used when Config.Capacity is zero.
const DefaultCapacity = 10

// Config controls cache sizing and admission.
type Config struct {
	// Capacity is the maximum number of entries kept after any insertion.
	// Default: 10
	Capacity int

	// MemoryThreshold is the heap usage ratio (used/limit) at or above which
	// new prefetches are refused.
	// Default: 0.80
	MemoryThreshold float64

	// LoadTimeout forces a pending entry to Failed when its fetch has not
	// completed in time. Zero disables the watchdog.
	// Default: 0 (disabled)
	LoadTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.MemoryThreshold <= 0 {
		c.MemoryThreshold = DefaultMemoryThreshold
	}
}

// Option customizes a Cache.
type Option func(*Cache)

// WithHeapStats sets the admission-control probe. Without one the cache
// never refuses a prefetch for memory reasons.
func WithHeapStats(p HeapStatsProvider) Option {
	return func(c *Cache) { c.heap = p }
}

// WithMetrics sets the metrics observer.
func WithMetrics(m CacheMetrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// Cache is a bounded, insertion-ordered prefetch cache for gallery media.
//
// Thread Safety:
// All methods are safe for concurrent use. No method blocks on a fetch:
// loads complete on loader goroutines and report back through a callback.
type Cache struct {
	cfg     Config
	loaders Loaders
	heap    HeapStatsProvider
	metrics CacheMetrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[Key]*list.Element
	order   *list.List // *entry, front is the oldest insertion

	// epoch increments on Clear so completions from released entries
	// do not leak into the fresh counters.
	epoch uint64

	preloadCount int
	timers       timers
}

// New creates a cache that prefetches with the given loaders.
func New(cfg Config, loaders Loaders, opts ...Option) *Cache {
	cfg.applyDefaults()

	c := &Cache{
		cfg:     cfg,
		loaders: loaders,
		now:     time.Now,
		entries: make(map[Key]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capacity returns the configured entry budget.
func (c *Cache) Capacity() int {
	return c.cfg.Capacity
}

// Preload prefetches the neighborhood of items[current].
//
// Items already present (pending, loaded or failed) are skipped. Admission
// control is checked before every new prefetch; when memory is under
// pressure the cache evicts to reclaim headroom and stops issuing for this
// call without reporting an error.
//
// The only errors are ErrEmptyItems and ErrInvalidIndex.
func (c *Cache) Preload(ctx context.Context, items []Item, current int) error {
	indices, err := Neighborhood(len(items), current)
	if err != nil {
		return err
	}

	for _, idx := range indices {
		item := items[idx]

		if c.contains(item.Key()) {
			continue
		}

		if !IsMemoryAcceptable(c.heap, c.cfg.MemoryThreshold) {
			logger.Warn("Memory pressure, skipping prefetch",
				logger.KeyMediaID, item.ID,
				logger.KeyThreshold, c.cfg.MemoryThreshold)
			if c.metrics != nil {
				c.metrics.RecordAdmissionRejected()
			}
			c.relieve()
			return nil
		}

		loader, ok := c.loaders[item.Kind]
		if !ok {
			logger.Warn("No loader for media kind",
				logger.KeyMediaID, item.ID,
				logger.KeyMediaKind, string(item.Kind))
			continue
		}

		c.issue(ctx, item, loader)
	}

	return nil
}

// Get returns the prefetched element for (id, src) if it finished loading.
// It returns nil for unknown, pending and failed entries so the viewer
// falls back to its normal loading path.
func (c *Cache) Get(id, src string) Element {
	c.mu.Lock()
	var el Element
	if le, ok := c.entries[Key{ID: id, Src: src}]; ok {
		e := le.Value.(*entry)
		if e.state == StateLoaded {
			el = e.element
		}
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.RecordLookup(el != nil)
	}
	return el
}

// State returns the lifecycle state of the entry for (id, src).
func (c *Cache) State(id, src string) (EntryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	le, ok := c.entries[Key{ID: id, Src: src}]
	if !ok {
		return 0, false
	}
	return le.Value.(*entry).state, true
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Keys returns the cached keys, oldest insertion first.
func (c *Cache) Keys() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]Key, 0, c.order.Len())
	for le := c.order.Front(); le != nil; le = le.Next() {
		keys = append(keys, le.Value.(*entry).key)
	}
	return keys
}

// Clear releases every entry, empties the store and resets counters and
// timers. It is idempotent and the cache stays usable afterwards.
func (c *Cache) Clear() {
	c.mu.Lock()
	removed := make([]*entry, 0, c.order.Len())
	for le := c.order.Front(); le != nil; le = le.Next() {
		e := le.Value.(*entry)
		e.removed = true
		removed = append(removed, e)
	}
	c.entries = make(map[Key]*list.Element)
	c.order.Init()
	c.epoch++
	c.preloadCount = 0
	c.timers = timers{}
	c.mu.Unlock()

	c.release(removed, EvictClear)

	if len(removed) > 0 {
		logger.Debug("Preload cache cleared", logger.KeyEvicted, len(removed))
	}
	if c.metrics != nil {
		c.metrics.RecordCacheSize(0)
	}
}

func (c *Cache) contains(k Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[k]
	return ok
}

// issue registers a pending entry for item and starts its loader. A key
// inserted by a concurrent Preload since the caller checked is left alone.
func (c *Cache) issue(ctx context.Context, item Item, loader Loader) {
	c.mu.Lock()
	if _, ok := c.entries[item.Key()]; ok {
		c.mu.Unlock()
		return
	}
	e := &entry{
		key:     item.Key(),
		kind:    item.Kind,
		state:   StatePending,
		epoch:   c.epoch,
		started: c.now(),
	}
	replaced, evicted := c.insertLocked(e)
	size := c.order.Len()
	c.mu.Unlock()

	c.release([]*entry{replaced}, EvictReplace)
	c.release(evicted, EvictCapacity)

	if c.metrics != nil {
		c.metrics.RecordIssued(item.Kind)
		c.metrics.RecordCacheSize(size)
	}

	// The fetch outlives the call that triggered it.
	loadCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if c.cfg.LoadTimeout > 0 {
		loadCtx, cancel = context.WithTimeout(loadCtx, c.cfg.LoadTimeout)
	}

	el := loader.Load(loadCtx, item, func(err error) {
		cancel()
		c.resolve(e, err)
	})

	c.mu.Lock()
	stale := e.removed || e.epoch != c.epoch
	if !stale {
		e.element = el
	}
	c.mu.Unlock()

	// Evicted or cleared between insertion and Load returning: nobody
	// else will release this handle.
	if stale && el != nil {
		el.Release()
	}

	logger.Debug("Prefetch issued",
		logger.KeyMediaID, item.ID,
		logger.KeyMediaKind, string(item.Kind),
		logger.KeySource, item.Src)
}

// resolve moves e out of Pending. It is the single place where entry state
// transitions happen, for every media kind.
func (c *Cache) resolve(e *entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic while resolving prefetch", logger.KeyMediaID, e.key.ID, "panic", r)
		}
	}()

	c.mu.Lock()
	if e.state != StatePending || e.epoch != c.epoch {
		c.mu.Unlock()
		return
	}
	if err == nil {
		e.state = StateLoaded
		c.preloadCount++
	} else {
		e.state = StateFailed
	}
	elapsed := c.now().Sub(e.started)
	c.mu.Unlock()

	if err != nil {
		logger.Warn("Prefetch failed",
			logger.KeyMediaID, e.key.ID,
			logger.KeyMediaKind, string(e.kind),
			logger.KeySource, e.key.Src,
			logger.KeyError, err)
	} else {
		logger.Debug("Prefetch loaded",
			logger.KeyMediaID, e.key.ID,
			logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)
	}

	if c.metrics != nil {
		c.metrics.ObservePreload(e.kind, err == nil, elapsed)
	}
}
