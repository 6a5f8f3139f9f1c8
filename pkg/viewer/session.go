// Package viewer models fullscreen viewer sessions.
//
// A Session is what the fullscreen viewer is while mounted: the gallery
// items, the current position and the preload cache that prefetches around
// it. Closing a session clears its cache. The Manager keeps the open
// sessions of a server.
package viewer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/internal/telemetry"
	"github.com/marmos91/mediaview/pkg/preload"
)

var (
	// ErrSessionNotFound is returned for unknown session ids.
	ErrSessionNotFound = errors.New("viewer: session not found")

	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("viewer: session closed")

	// ErrInvalidItems is returned when the gallery items fail validation.
	ErrInvalidItems = errors.New("viewer: invalid items")
)

// Session is one open viewer over an ordered list of items.
type Session struct {
	id      string
	created time.Time
	cache   *preload.Cache

	// navMu serializes navigations with Close so a prefetch pass never
	// outlives the session that issued it. Taken before mu.
	navMu sync.Mutex

	mu     sync.Mutex
	items  []preload.Item
	index  int
	closed bool
}

// Info summarizes a session for listings.
type Info struct {
	ID        string    `json:"id" yaml:"id"`
	Items     int       `json:"items" yaml:"items"`
	Index     int       `json:"index" yaml:"index"`
	CacheSize int       `json:"cache_size" yaml:"cache_size"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewSession creates a session backed by cache. Open must be called before
// navigating.
func NewSession(id string, cache *preload.Cache) *Session {
	return &Session{id: id, cache: cache, created: time.Now()}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Cache returns the session's preload cache.
func (s *Session) Cache() *preload.Cache { return s.cache }

// Open sets the gallery and prefetches around index.
func (s *Session) Open(ctx context.Context, items []preload.Item, index int) (preload.Snapshot, error) {
	if err := ValidateItems(items); err != nil {
		return preload.Snapshot{}, err
	}
	if index < 0 || index >= len(items) {
		return preload.Snapshot{}, preload.ErrInvalidIndex
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return preload.Snapshot{}, ErrSessionClosed
	}
	s.items = append([]preload.Item(nil), items...)
	s.mu.Unlock()

	return s.Navigate(ctx, index)
}

// Navigate moves to index and prefetches its neighborhood. The navigation
// timer brackets the prefetch issuance.
func (s *Session) Navigate(ctx context.Context, index int) (preload.Snapshot, error) {
	s.navMu.Lock()
	defer s.navMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return preload.Snapshot{}, ErrSessionClosed
	}
	items := s.items
	s.mu.Unlock()

	ctx, span := telemetry.StartViewerSpan(ctx, telemetry.SpanViewerNavigate, s.id,
		telemetry.Index(index), telemetry.Items(len(items)))
	defer span.End()

	s.cache.StartNavigationTimer()
	err := s.cache.Preload(ctx, items, index)
	elapsed := s.cache.EndNavigationTimer()
	if err != nil {
		telemetry.RecordError(ctx, err)
		return preload.Snapshot{}, err
	}

	s.mu.Lock()
	s.index = index
	s.mu.Unlock()

	snap := s.cache.Metrics()
	telemetry.SetAttributes(ctx, telemetry.CacheSize(snap.MediaCacheSize))
	logger.DebugCtx(ctx, "Viewer navigated",
		logger.KeySessionID, s.id,
		logger.KeyIndex, index,
		logger.KeyCacheSize, snap.MediaCacheSize,
		logger.KeyDurationMs, float64(elapsed.Microseconds())/1000.0)

	return snap, nil
}

// Next moves forward one item, wrapping to the first.
func (s *Session) Next(ctx context.Context) (preload.Snapshot, error) {
	return s.step(ctx, 1)
}

// Prev moves back one item, wrapping to the last.
func (s *Session) Prev(ctx context.Context) (preload.Snapshot, error) {
	return s.step(ctx, -1)
}

func (s *Session) step(ctx context.Context, delta int) (preload.Snapshot, error) {
	s.mu.Lock()
	n := len(s.items)
	if n == 0 {
		s.mu.Unlock()
		return preload.Snapshot{}, preload.ErrEmptyItems
	}
	next := ((s.index+delta)%n + n) % n
	s.mu.Unlock()

	return s.Navigate(ctx, next)
}

// Current returns the item at the current position.
func (s *Session) Current() (preload.Item, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return preload.Item{}, 0, false
	}
	return s.items[s.index], s.index, true
}

// Get returns the prefetched element for (id, src), or nil.
func (s *Session) Get(id, src string) preload.Element {
	return s.cache.Get(id, src)
}

// Metrics returns the cache snapshot.
func (s *Session) Metrics() preload.Snapshot {
	return s.cache.Metrics()
}

// Export returns the serializable cache snapshot.
func (s *Session) Export() preload.Export {
	return s.cache.ExportPerformanceData()
}

// Info returns a summary of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		ID:        s.id,
		Items:     len(s.items),
		Index:     s.index,
		CacheSize: s.cache.Len(),
		CreatedAt: s.created,
	}
}

// Close clears the cache and releases every element. It waits for an
// in-flight navigation to finish issuing. It is idempotent.
func (s *Session) Close() {
	s.navMu.Lock()
	defer s.navMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cache.Clear()
	logger.Debug("Viewer session closed", logger.KeySessionID, s.id)
}
