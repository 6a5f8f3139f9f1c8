package preload

import (
	"time"

	"github.com/marmos91/mediaview/internal/logger"
)

// entry is one cached prefetch. All fields are guarded by Cache.mu.
type entry struct {
	key     Key
	kind    Kind
	state   EntryState
	element Element
	epoch   uint64
	started time.Time

	// removed is set once the entry leaves the store. A loader may still
	// hand back its element afterwards and that element must be released.
	removed bool
}

// insertLocked appends e as the newest entry and evicts the oldest entries
// until the store is back within capacity. An existing entry for the same
// key is replaced and returned separately. The caller must hold c.mu and
// release the returned entries after unlocking.
func (c *Cache) insertLocked(e *entry) (replaced *entry, evicted []*entry) {
	if le, ok := c.entries[e.key]; ok {
		replaced = c.order.Remove(le).(*entry)
		replaced.removed = true
		delete(c.entries, e.key)
	}

	c.entries[e.key] = c.order.PushBack(e)

	for c.order.Len() > c.cfg.Capacity {
		evicted = append(evicted, c.removeOldestLocked())
	}
	return replaced, evicted
}

// removeOldestLocked detaches the oldest entry. The caller must hold c.mu.
func (c *Cache) removeOldestLocked() *entry {
	front := c.order.Front()
	e := c.order.Remove(front).(*entry)
	delete(c.entries, e.key)
	e.removed = true
	return e
}

// EvictOldest removes up to n of the oldest entries, releasing their
// elements, and returns how many were removed.
func (c *Cache) EvictOldest(n int) int {
	return c.evictOldest(n, EvictPressure)
}

func (c *Cache) evictOldest(n int, reason EvictReason) int {
	if n <= 0 {
		return 0
	}

	c.mu.Lock()
	var evicted []*entry
	for i := 0; i < n && c.order.Len() > 0; i++ {
		evicted = append(evicted, c.removeOldestLocked())
	}
	size := c.order.Len()
	c.mu.Unlock()

	c.release(evicted, reason)

	if c.metrics != nil && len(evicted) > 0 {
		c.metrics.RecordCacheSize(size)
	}
	return len(evicted)
}

// relieve reclaims room after admission control refused a prefetch. It
// evicts down to half the capacity, and always at least one entry.
func (c *Cache) relieve() {
	c.mu.Lock()
	size := c.order.Len()
	c.mu.Unlock()

	if size == 0 {
		return
	}

	n := max(1, size-c.cfg.Capacity/2)
	evicted := c.evictOldest(n, EvictPressure)

	logger.Info("Evicted prefetched media under memory pressure",
		logger.KeyEvicted, evicted,
		logger.KeyCacheSize, size-evicted)
}

// release frees the elements of entries that have left the store. It must
// be called without c.mu held since Release may do blocking work.
func (c *Cache) release(evicted []*entry, reason EvictReason) {
	for _, e := range evicted {
		if e == nil {
			continue
		}

		// element is written under the lock by issue; nil means Load has
		// not returned yet and issue will release it itself. Taking it
		// leaves exactly one releaser.
		c.mu.Lock()
		el := e.element
		e.element = nil
		c.mu.Unlock()

		if el != nil {
			el.Release()
		}

		if c.metrics != nil {
			c.metrics.RecordEviction(e.kind, reason)
		}
	}
}
