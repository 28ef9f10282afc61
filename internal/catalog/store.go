package catalog

import (
	"errors"
	"sync"
	"time"

	"github.com/terra-clan/certmap/internal/models"
)

var (
	ErrNotLoaded = errors.New("catalog not loaded")
	ErrNotFound  = errors.New("certification not found")
)

// Snapshot is one immutable, validated version of the catalog. Records must
// not be modified after the snapshot is published.
type Snapshot struct {
	Version  int64                   `json:"version"`
	Source   string                  `json:"source"`
	LoadedAt time.Time               `json:"loaded_at"`
	Records  []*models.Certification `json:"-"`

	bySlug map[string]*models.Certification
}

func newSnapshot(version int64, source string, records []*models.Certification) *Snapshot {
	s := &Snapshot{
		Version:  version,
		Source:   source,
		LoadedAt: time.Now(),
		Records:  records,
		bySlug:   make(map[string]*models.Certification, len(records)),
	}
	for _, r := range records {
		s.bySlug[r.Slug] = r
	}
	return s
}

// Get returns the record with the given slug
func (s *Snapshot) Get(slug string) (*models.Certification, error) {
	r, ok := s.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Len returns the number of records
func (s *Snapshot) Len() int {
	return len(s.Records)
}

// Store holds the current snapshot and swaps it atomically on reload
type Store struct {
	mu      sync.RWMutex
	current *Snapshot
	version int64
	subs    []func(*Snapshot)
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the current snapshot and returns it
func (s *Store) Publish(source string, records []*models.Certification) *Snapshot {
	s.mu.Lock()
	s.version++
	snap := newSnapshot(s.version, source, records)
	s.current = snap
	subs := append([]func(*Snapshot){}, s.subs...)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
	return snap
}

// Current returns the latest snapshot or ErrNotLoaded
func (s *Store) Current() (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, ErrNotLoaded
	}
	return s.current, nil
}

// Loaded reports whether a snapshot has been published
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// OnPublish registers fn to run after every publish
func (s *Store) OnPublish(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
