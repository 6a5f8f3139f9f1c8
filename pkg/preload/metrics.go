package preload

import "time"

// timers holds the two stopwatches. A zero start means the stopwatch was
// never started.
type timers struct {
	loadStart time.Time
	loadTime  time.Duration
	navStart  time.Time
	navTime   time.Duration
}

// StartTimer starts the load stopwatch, overwriting any earlier start.
func (c *Cache) StartTimer() {
	c.mu.Lock()
	c.timers.loadStart = c.now()
	c.mu.Unlock()
}

// EndTimer stores the time elapsed since StartTimer as the load time and
// returns it. Without a prior start it keeps the previous value.
func (c *Cache) EndTimer() time.Duration {
	c.mu.Lock()
	if c.timers.loadStart.IsZero() {
		d := c.timers.loadTime
		c.mu.Unlock()
		return d
	}
	d := c.now().Sub(c.timers.loadStart)
	c.timers.loadTime = d
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ObserveLoad(d)
	}
	return d
}

// StartNavigationTimer starts the navigation stopwatch.
func (c *Cache) StartNavigationTimer() {
	c.mu.Lock()
	c.timers.navStart = c.now()
	c.mu.Unlock()
}

// EndNavigationTimer stores and returns the navigation time.
func (c *Cache) EndNavigationTimer() time.Duration {
	c.mu.Lock()
	if c.timers.navStart.IsZero() {
		d := c.timers.navTime
		c.mu.Unlock()
		return d
	}
	d := c.now().Sub(c.timers.navStart)
	c.timers.navTime = d
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ObserveNavigation(d)
	}
	return d
}

// Metrics returns a fresh snapshot of the counters, timers and, when the
// host exposes them, heap statistics.
func (c *Cache) Metrics() Snapshot {
	c.mu.Lock()
	snap := Snapshot{
		LoadTime:       c.timers.loadTime,
		NavigationTime: c.timers.navTime,
		PreloadCount:   c.preloadCount,
		MediaCacheSize: c.order.Len(),
	}
	c.mu.Unlock()

	snap.MemoryUsage = c.heapStats()
	return snap
}

// ExportPerformanceData bundles a snapshot with the heap reading and a
// timestamp for logging or display.
func (c *Cache) ExportPerformanceData() Export {
	snap := c.Metrics()
	return Export{
		Metrics:   snap,
		Memory:    snap.MemoryUsage,
		CacheSize: snap.MediaCacheSize,
		Timestamp: c.now(),
	}
}

func (c *Cache) heapStats() *HeapStats {
	if c.heap == nil {
		return nil
	}
	stats, ok := c.heap.HeapStats()
	if !ok {
		return nil
	}
	return &stats
}
