package sessions

import (
	"sync"
	"time"

	"github.com/terra-clan/certmap/internal/catalog"
	"github.com/terra-clan/certmap/internal/filter"
	"github.com/terra-clan/certmap/internal/models"
)

const subscriberBuffer = 8

// Session is one viewer's filter engine plus its live subscribers
type Session struct {
	id        string
	engine    *filter.Engine
	snapshot  *catalog.Snapshot
	createdAt time.Time
	ttl       time.Duration

	mu       sync.Mutex
	lastSeen time.Time
	subs     map[int]chan filter.View
	nextSub  int
	closed   bool
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Engine returns the session's filter engine
func (s *Session) Engine() *filter.Engine { return s.engine }

// Snapshot returns the catalog version the session is bound to
func (s *Session) Snapshot() *catalog.Snapshot { return s.snapshot }

// Info describes the session
func (s *Session) Info() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &models.Session{
		ID:             s.id,
		CatalogVersion: s.snapshot.Version,
		CatalogSource:  s.snapshot.Source,
		CreatedAt:      s.createdAt,
		LastSeenAt:     s.lastSeen,
		ExpiresAt:      s.lastSeen.Add(s.ttl),
		Subscribers:    len(s.subs),
	}
}

// Subscribe returns a channel receiving every recomputed view. Slow
// subscribers only ever miss intermediate views, never the latest one.
// The channel is closed by cancel or when the session ends.
func (s *Session) Subscribe() (<-chan filter.View, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan filter.View, subscriberBuffer)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) broadcast(v filter.View) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// drop the oldest queued view to make room
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && now.Sub(s.lastSeen) > s.ttl
}

func (s *Session) close() {
	s.engine.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
