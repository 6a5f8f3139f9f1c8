package viewer

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/mediaview/internal/logger"
	"github.com/marmos91/mediaview/pkg/preload"
)

// CacheFactory builds the preload cache of a new session.
type CacheFactory func() *preload.Cache

// Manager tracks open sessions. It is safe for concurrent use.
type Manager struct {
	newCache CacheFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a manager whose sessions get caches from newCache.
func NewManager(newCache CacheFactory) *Manager {
	return &Manager{
		newCache: newCache,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session on items at index. The session is only
// registered if the initial navigation succeeds.
func (m *Manager) Create(ctx context.Context, items []preload.Item, index int) (*Session, preload.Snapshot, error) {
	s := NewSession(uuid.NewString(), m.newCache())

	snap, err := s.Open(ctx, items, index)
	if err != nil {
		s.Close()
		return nil, preload.Snapshot{}, err
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	total := len(m.sessions)
	m.mu.Unlock()

	logger.InfoCtx(ctx, "Viewer session opened",
		logger.KeySessionID, s.id,
		logger.KeyItems, len(items),
		logger.KeyIndex, index,
		"sessions", total)
	return s, snap, nil
}

// Lookup returns the session with id.
func (m *Manager) Lookup(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close closes and forgets the session with id.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll closes every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if len(sessions) > 0 {
		logger.Info("Viewer sessions closed", "sessions", len(sessions))
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns a summary of every session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
