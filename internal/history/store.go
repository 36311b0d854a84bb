package history

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"go.klb.dev/stash/internal/content"
)

// DefaultSize is the number of unpinned items kept when Config.Size is unset.
const DefaultSize = 200

// PinPosition controls where pinned items appear in All().
type PinPosition string

const (
	PinNone   PinPosition = "none" // pure recency order
	PinTop    PinPosition = "top"
	PinBottom PinPosition = "bottom"
)

// ParsePinPosition converts s to a PinPosition, returning PinNone for
// unknown values.
func ParsePinPosition(s string) PinPosition {
	switch PinPosition(s) {
	case PinTop:
		return PinTop
	case PinBottom:
		return PinBottom
	default:
		return PinNone
	}
}

// Config holds the history policy.
type Config struct {
	// Size bounds the number of unpinned items. Pinned items do not count.
	Size int
	// PinPosition moves pinned items to one end of All().
	PinPosition PinPosition
	// Resolver configures title and image resolution.
	Resolver content.Options
}

// Repository persists committed history. Save replaces the stored state
// with items atomically and must reject pin violations itself, leaving the
// previous state untouched.
type Repository interface {
	Load(ctx context.Context) ([]*Item, error)
	Save(ctx context.Context, items []*Item) error
	Close() error
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithResolver replaces the resolver built from Config.Resolver.
func WithResolver(r *content.Resolver) Option {
	return func(s *Store) { s.resolver = r }
}

// Store is the single owner of history items. Mutations change an in-memory
// working set; Commit validates and persists it as one transaction.
// All methods are safe for concurrent use.
type Store struct {
	repo     Repository
	cfg      Config
	resolver *content.Resolver
	now      func() time.Time

	mu        sync.RWMutex
	items     []*Item // most recently copied first
	committed []*Item
	dirty     bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// New returns an empty Store. repo may be nil for a purely in-memory history.
// Call Load to populate it from repo.
func New(repo Repository, cfg Config, opts ...Option) *Store {
	if cfg.Size <= 0 {
		cfg.Size = DefaultSize
	}
	if cfg.PinPosition == "" {
		cfg.PinPosition = PinNone
	}
	s := &Store{
		repo: repo,
		cfg:  cfg,
		now:  time.Now,
		subs: make(map[int]chan Event),
	}
	for _, o := range opts {
		o(s)
	}
	if s.resolver == nil {
		s.resolver = content.NewResolver(cfg.Resolver)
	}
	return s
}

// Load replaces the working set with the repository contents and re-derives
// titles and images.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	items, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	for _, it := range items {
		s.derive(it)
	}
	sortByRecency(items)

	s.mu.Lock()
	s.items = items
	s.committed = cloneAll(items)
	s.dirty = false
	s.mu.Unlock()

	slog.Debug("history loaded", "items", len(items))
	return nil
}

// Add records a clipboard snapshot. Byte-identical contents promote the
// existing item; anything else is inserted at the front. Unpinned items
// beyond Config.Size are evicted, least recently copied first. Snapshots
// without any non-empty content are ignored and nil is returned.
func (s *Store) Add(snap content.Snapshot) *Item {
	if snap.Empty() {
		return nil
	}
	contents := content.Clone(snap.Contents)
	fp := content.Fingerprint(contents)

	s.mu.Lock()
	var (
		events []Event
		result *Item
	)
	now := s.tickLocked()
	if i := s.indexOfLocked(fp, contents); i >= 0 {
		it := s.items[i]
		it.LastCopiedAt = now
		it.NumberOfCopies++
		if snap.Application != "" {
			it.Application = snap.Application
		}
		copy(s.items[1:i+1], s.items[:i])
		s.items[0] = it
		result = it.Clone()
		events = append(events, Event{Kind: EventPromoted, ItemID: it.ID, Title: it.Title})
	} else {
		it := &Item{
			ID:             uuid.NewString(),
			Contents:       contents,
			FirstCopiedAt:  now,
			LastCopiedAt:   now,
			NumberOfCopies: 1,
			Application:    snap.Application,
		}
		s.derive(it)
		slog.Debug("history item added", "id", it.ID, "rule", s.resolver.Rule(it.Contents))
		s.items = append([]*Item{it}, s.items...)
		result = it.Clone()
		events = append(events, Event{Kind: EventAdded, ItemID: it.ID, Title: it.Title})
	}
	events = append(events, s.evictLocked()...)
	s.dirty = true
	s.mu.Unlock()

	s.publish(events)
	return result
}

// RemoveRecent drops the most recent item after the clipboard source
// reports that its content was withdrawn. Nothing is removed unless that
// item is id; pinned items are kept.
func (s *Store) RemoveRecent(id string) (*Item, bool) {
	s.mu.Lock()
	if len(s.items) == 0 || s.items[0].ID != id || s.items[0].Pinned() {
		s.mu.Unlock()
		return nil, false
	}
	it := s.items[0]
	s.items = s.items[1:]
	s.dirty = true
	s.mu.Unlock()

	s.publish([]Event{{Kind: EventRemoved, ItemID: it.ID, Title: it.Title}})
	return it.Clone(), true
}

// Delete removes the item with id. It reports whether the item existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexByIDLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	it := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.dirty = true
	s.mu.Unlock()

	s.publish([]Event{{Kind: EventRemoved, ItemID: it.ID, Title: it.Title}})
	return true
}

// Clear deletes every item, or every unpinned item when keepPinned is set.
func (s *Store) Clear(keepPinned bool) {
	s.mu.Lock()
	kept := s.items[:0:0]
	if keepPinned {
		for _, it := range s.items {
			if it.Pinned() {
				kept = append(kept, it)
			}
		}
	}
	removed := len(s.items) - len(kept)
	s.items = kept
	s.dirty = true
	s.mu.Unlock()

	slog.Debug("history cleared", "removed", removed, "kept", len(kept))
	s.publish([]Event{{Kind: EventCleared}})
}

// SetPin assigns pin to the item with id without validating it. Invalid or
// duplicate pins are rejected by the next Commit. It returns false only when
// no such item exists.
func (s *Store) SetPin(id, pin string) bool {
	s.mu.Lock()
	i := s.indexByIDLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	it := s.items[i]
	it.Pin = pin
	s.dirty = true
	s.mu.Unlock()

	s.publish([]Event{{Kind: EventPinned, ItemID: it.ID, Title: it.Title, Pin: pin}})
	return true
}

// Commit validates the working set and persists it. On failure the pending
// changes are discarded, the working set returns to the last committed
// state, and the repository is left unchanged.
func (s *Store) Commit(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snapshot := cloneAll(s.items)
	err := ValidatePins(snapshot)
	if err == nil && s.repo != nil {
		if err = s.repo.Save(ctx, snapshot); err != nil {
			err = fmt.Errorf("commit: %w", err)
		}
	}
	if err != nil {
		s.rollbackLocked()
		s.mu.Unlock()
		slog.Warn("history commit rejected", "err", err)
		s.publish([]Event{{Kind: EventRolledBack}})
		return err
	}
	s.committed = snapshot
	s.dirty = false
	n := len(snapshot)
	s.mu.Unlock()

	slog.Debug("history committed", "items", n)
	s.publish([]Event{{Kind: EventCommitted}})
	return nil
}

// Rollback discards all changes since the last successful Commit or Load.
func (s *Store) Rollback() {
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return
	}
	s.rollbackLocked()
	s.mu.Unlock()
	s.publish([]Event{{Kind: EventRolledBack}})
}

// Dirty reports whether there are uncommitted changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Len returns the number of items in the working set.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// All returns copies of every item, most recently copied first, with pinned
// items moved according to Config.PinPosition.
func (s *Store) All() []*Item {
	s.mu.RLock()
	out := cloneAll(s.items)
	s.mu.RUnlock()

	switch s.cfg.PinPosition {
	case PinTop:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Pinned() && !out[j].Pinned() })
	case PinBottom:
		sort.SliceStable(out, func(i, j int) bool { return !out[i].Pinned() && out[j].Pinned() })
	}
	return out
}

// At returns the item at 1-based position n of All().
func (s *Store) At(n int) (*Item, bool) {
	all := s.All()
	if n < 1 || n > len(all) {
		return nil, false
	}
	return all[n-1], true
}

// Get returns a copy of the item with id.
func (s *Store) Get(id string) (*Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByIDLocked(id); i >= 0 {
		return s.items[i].Clone(), true
	}
	return nil, false
}

// FindByPin returns the first item holding pin.
func (s *Store) FindByPin(pin string) (*Item, bool) {
	if pin == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.Pin == pin {
			return it.Clone(), true
		}
	}
	return nil, false
}

// Close closes the repository.
func (s *Store) Close() error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Close()
}

func (s *Store) derive(it *Item) {
	it.Title, it.Image = s.resolver.Resolve(it.Contents)
	it.fp = content.Fingerprint(it.Contents)
}

// tickLocked returns a timestamp strictly after the newest item so that
// recency order and LastCopiedAt never disagree.
func (s *Store) tickLocked() time.Time {
	t := s.now().Round(0)
	if len(s.items) > 0 {
		if last := s.items[0].LastCopiedAt; !t.After(last) {
			t = last.Add(time.Nanosecond)
		}
	}
	return t
}

func (s *Store) indexOfLocked(fp string, cs []content.Content) int {
	for i, it := range s.items {
		if it.fp == fp && content.Equal(it.Contents, cs) {
			return i
		}
	}
	return -1
}

func (s *Store) indexByIDLocked(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// evictLocked removes the least recently copied unpinned items until at most
// Config.Size unpinned items remain.
func (s *Store) evictLocked() []Event {
	unpinned := 0
	for _, it := range s.items {
		if !it.Pinned() {
			unpinned++
		}
	}
	var events []Event
	for i := len(s.items) - 1; i >= 0 && unpinned > s.cfg.Size; i-- {
		it := s.items[i]
		if it.Pinned() {
			continue
		}
		s.items = append(s.items[:i], s.items[i+1:]...)
		unpinned--
		slog.Debug("history item evicted", "id", it.ID)
		events = append(events, Event{Kind: EventEvicted, ItemID: it.ID, Title: it.Title})
	}
	return events
}

func (s *Store) rollbackLocked() {
	s.items = cloneAll(s.committed)
	s.dirty = false
}

func sortByRecency(items []*Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastCopiedAt.After(items[j].LastCopiedAt)
	})
}
