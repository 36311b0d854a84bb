// Package memory implements history.Repository in process memory.
package memory

import (
	"context"
	"sync"

	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/history"
)

// Store keeps the last committed snapshot.
type Store struct {
	mu    sync.RWMutex
	items []*history.Item
}

// New returns an empty Store.
func New() *Store { return &Store{} }

func (s *Store) Load(ctx context.Context) ([]*history.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.items), nil
}

// Save replaces the stored snapshot. Pin violations leave it unchanged.
func (s *Store) Save(ctx context.Context, items []*history.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := history.ValidatePins(items); err != nil {
		return err
	}
	cp := clone(items)

	s.mu.Lock()
	s.items = cp
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func clone(items []*history.Item) []*history.Item {
	out := make([]*history.Item, len(items))
	for i, it := range items {
		out[i] = &history.Item{
			ID:             it.ID,
			Contents:       content.Clone(it.Contents),
			Title:          it.Title,
			Pin:            it.Pin,
			FirstCopiedAt:  it.FirstCopiedAt,
			LastCopiedAt:   it.LastCopiedAt,
			NumberOfCopies: it.NumberOfCopies,
			Application:    it.Application,
		}
	}
	return out
}
