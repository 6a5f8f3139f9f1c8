package preload

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// fakeElement records releases.
type fakeElement struct {
	kind     Kind
	src      string
	released atomic.Int32
}

func (e *fakeElement) Kind() Kind { return e.kind }

func (e *fakeElement) Source() string {
	if e.released.Load() > 0 {
		return ""
	}
	return e.src
}

func (e *fakeElement) Release() { e.released.Add(1) }

// fakeLoader hands out fakeElements. In manual mode completions are held
// until Complete or Fail is called; otherwise loads resolve synchronously
// with the error from failFor (nil when absent).
type fakeLoader struct {
	kind   Kind
	manual bool

	mu       sync.Mutex
	failFor  map[string]error
	pending  map[Key]func(error)
	elements map[Key]*fakeElement
	calls    []Key
}

func newFakeLoader(kind Kind) *fakeLoader {
	return &fakeLoader{
		kind:     kind,
		failFor:  make(map[string]error),
		pending:  make(map[Key]func(error)),
		elements: make(map[Key]*fakeElement),
	}
}

func newManualLoader(kind Kind) *fakeLoader {
	l := newFakeLoader(kind)
	l.manual = true
	return l
}

func (l *fakeLoader) Load(_ context.Context, item Item, done func(error)) Element {
	el := &fakeElement{kind: l.kind, src: item.Src}

	l.mu.Lock()
	l.calls = append(l.calls, item.Key())
	l.elements[item.Key()] = el
	failErr := l.failFor[item.ID]
	if l.manual {
		l.pending[item.Key()] = done
	}
	l.mu.Unlock()

	if !l.manual {
		done(failErr)
	}
	return el
}

func (l *fakeLoader) Complete(k Key) { l.finish(k, nil) }

func (l *fakeLoader) Fail(k Key, err error) { l.finish(k, err) }

func (l *fakeLoader) finish(k Key, err error) {
	l.mu.Lock()
	done, ok := l.pending[k]
	delete(l.pending, k)
	l.mu.Unlock()
	if ok {
		done(err)
	}
}

func (l *fakeLoader) Calls() []Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Key(nil), l.calls...)
}

func (l *fakeLoader) Element(k Key) *fakeElement {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.elements[k]
}

// recordingMetrics collects CacheMetrics calls.
type recordingMetrics struct {
	mu        sync.Mutex
	issued    int
	success   int
	failed    int
	evictions map[EvictReason]int
	hits      int
	misses    int
	rejected  int
	size      int
	nav       []time.Duration
	load      []time.Duration
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{evictions: make(map[EvictReason]int)}
}

func (m *recordingMetrics) ObservePreload(_ Kind, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.success++
	} else {
		m.failed++
	}
}

func (m *recordingMetrics) RecordIssued(Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issued++
}

func (m *recordingMetrics) RecordEviction(_ Kind, reason EvictReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evictions[reason]++
}

func (m *recordingMetrics) RecordLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *recordingMetrics) RecordAdmissionRejected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected++
}

func (m *recordingMetrics) RecordCacheSize(entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = entries
}

func (m *recordingMetrics) ObserveNavigation(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nav = append(m.nav, d)
}

func (m *recordingMetrics) ObserveLoad(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load = append(m.load, d)
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// images builds n image items named img-0..img-(n-1).
func images(n int) []Item {
	items := make([]Item, n)
	for i := range items {
		items[i] = Item{
			ID:   fmt.Sprintf("img-%d", i),
			Src:  fmt.Sprintf("https://cdn.example.com/%d.jpg", i),
			Kind: KindImage,
		}
	}
	return items
}

func keysOf(items []Item, idx ...int) []Key {
	keys := make([]Key, len(idx))
	for i, j := range idx {
		keys[i] = items[j].Key()
	}
	return keys
}

// pressure reports a heap at the given usage ratio of a 1000 byte limit.
func pressure(ratio float64) StaticHeapStats {
	const limit = 1000
	return StaticHeapStats{
		Stats: HeapStats{Used: uint64(math.Round(ratio * limit)), Total: limit, Limit: limit},
		OK:    true,
	}
}
