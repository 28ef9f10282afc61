package filter

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/terra-clan/certmap/internal/models"
)

// Option configures an Engine.
type Option func(*Engine)

// WithDebounce sets the quiet period applied to search text changes.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) { e.delay = d }
}

// WithScheduler replaces the wall-clock timer source.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithOnChange registers a callback invoked after every recompute,
// including debounced search commits. It runs outside the engine lock.
func WithOnChange(fn func(View)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// Engine holds one viewer's filter selection over a fixed record collection
// and keeps the derived view current.
//
// Category and skill level changes recompute immediately. Search text is
// echoed immediately but only applied after the debounce quiet period; the
// last value written wins.
type Engine struct {
	mu       sync.Mutex
	records  []*models.Certification
	sel      Selection
	applied  string
	pending  bool
	gen      uint64
	filtered []*models.Certification
	revision uint64
	closed   bool

	delay    time.Duration
	sched    Scheduler
	debounce *Debouncer
	onChange func(View)
}

// New binds an engine to records with the default selection. The slice is
// not copied or modified; callers must not mutate it afterwards.
func New(records []*models.Certification, opts ...Option) *Engine {
	e := &Engine{
		records: records,
		sel:     DefaultSelection(),
		delay:   DefaultDebounce,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.debounce = NewDebouncer(e.delay, e.sched)
	e.recompute()
	return e
}

// SetCategory replaces the category and recomputes.
func (e *Engine) SetCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, c)
	}

	e.mu.Lock()
	e.sel.Category = c
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
	return nil
}

// ToggleSkillLevel adds l to the selection, or removes it if already
// selected, and recomputes.
func (e *Engine) ToggleSkillLevel(l models.SkillLevel) error {
	if !l.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownSkillLevel, l)
	}

	e.mu.Lock()
	e.sel.toggle(l)
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
	return nil
}

// ClearSkillLevels deselects every skill level and recomputes.
func (e *Engine) ClearSkillLevels() {
	e.mu.Lock()
	e.sel.SkillLevels = []models.SkillLevel{}
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
}

// SetSearchText stores text for echo and (re)starts the debounce timer.
// The view changes only when the timer elapses without another call.
func (e *Engine) SetSearchText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		e.sel.SearchText = text
		return
	}
	e.sel.SearchText = text
	e.gen++
	gen := e.gen
	e.pending = true
	e.debounce.Trigger(func() { e.commitSearch(gen) })
}

func (e *Engine) commitSearch(gen uint64) {
	e.mu.Lock()
	if gen != e.gen || e.closed {
		e.mu.Unlock()
		return
	}
	e.applied = e.sel.SearchText
	e.pending = false
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
}

// Flush applies a pending search immediately. It reports whether anything
// was pending.
func (e *Engine) Flush() bool {
	e.mu.Lock()
	if !e.pending {
		e.mu.Unlock()
		return false
	}
	e.debounce.Cancel()
	e.gen++
	e.applied = e.sel.SearchText
	e.pending = false
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
	return true
}

// Clear restores the default selection, drops any pending search and
// recomputes without waiting for the debounce period.
func (e *Engine) Clear() {
	e.mu.Lock()
	e.debounce.Cancel()
	e.gen++
	e.sel = DefaultSelection()
	e.applied = ""
	e.pending = false
	v := e.recompute()
	e.mu.Unlock()

	e.notify(v)
}

// Close stops the debounce timer. A pending search is discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.debounce.Cancel()
	e.gen++
	e.pending = false
}

// Filtered returns the last committed view.
func (e *Engine) Filtered() []*models.Certification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.filtered)
}

// Selection returns a copy of the current selection, including search text
// that may still be pending.
func (e *Engine) Selection() Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel.clone()
}

// AppliedSearch returns the search text the view was computed with.
func (e *Engine) AppliedSearch() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applied
}

// SearchPending reports whether a search change is waiting for its quiet period.
func (e *Engine) SearchPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Records returns the bound collection.
func (e *Engine) Records() []*models.Certification {
	return e.records
}

// View returns a consistent snapshot of the engine state.
func (e *Engine) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view()
}

// recompute must be called with e.mu held.
func (e *Engine) recompute() View {
	e.filtered = Apply(e.records, Criteria{
		Category:    e.sel.Category,
		SkillLevels: e.sel.SkillLevels,
		Search:      e.applied,
	})
	e.revision++
	return e.view()
}

func (e *Engine) view() View {
	return View{
		Revision:      e.revision,
		Selection:     e.sel.clone(),
		AppliedSearch: e.applied,
		SearchPending: e.pending,
		Records:       slices.Clone(e.filtered),
		Shown:         len(e.filtered),
		Total:         len(e.records),
	}
}

func (e *Engine) notify(v View) {
	if e.onChange != nil {
		e.onChange(v)
	}
}
