// Package sessions keeps one filter engine per viewer and expires idle ones.
package sessions

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/models"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many sessions")
)

const DefaultTTL = 30 * time.Minute

// Config holds session manager settings
type Config struct {
	TTL         time.Duration
	Debounce    time.Duration
	MaxSessions int

	// Scheduler overrides the debounce timer source. Nil means wall-clock.
	Scheduler filter.Scheduler
}

// Manager owns all live sessions
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    *catalog.Store
	cfg      Config
	now      func() time.Time
}

// NewManager creates a session manager bound to store
func NewManager(store *catalog.Store, cfg Config) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = filter.DefaultDebounce
	}
	return &Manager{
		sessions: make(map[string]*Session),
		store:    store,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Create starts a session over the current catalog snapshot
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	snap, err := m.store.Current()
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, ErrTooManySessions
	}

	now := m.now()
	s := &Session{
		id:        uuid.New().String(),
		snapshot:  snap,
		createdAt: now,
		lastSeen:  now,
		ttl:       m.cfg.TTL,
		subs:      make(map[int]chan filter.View),
	}
	s.engine = filter.New(snap.Records,
		filter.WithDebounce(m.cfg.Debounce),
		filter.WithScheduler(m.cfg.Scheduler),
		filter.WithOnChange(s.broadcast),
	)
	m.sessions[s.id] = s

	slog.Info("session created",
		"id", s.id,
		"catalog_version", snap.Version,
		"records", snap.Len(),
	)
	return s, nil
}

// Get returns a live session and marks it as used
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	now := m.now()
	if s.expired(now) {
		return nil, ErrSessionNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete closes and removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.close()
	slog.Info("session deleted", "id", id)
	return nil
}

// List returns session descriptions ordered by creation time
func (m *Manager) List(ctx context.Context) []*models.Session {
	m.mu.RLock()
	result := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		result = append(result, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// GetExpired returns sessions idle for longer than the TTL. Sessions with a
// live subscriber are never expired.
func (m *Manager) GetExpired(ctx context.Context) ([]*models.Session, error) {
	now := m.now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	var expired []*models.Session
	for _, s := range m.sessions {
		if s.expired(now) {
			expired = append(expired, s.Info())
		}
	}
	return expired, nil
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close removes every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
