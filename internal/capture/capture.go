// Package capture feeds clipboard changes into the history and writes
// selected items back to the clipboard.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.klb.dev/stash/internal/clip"
	"go.klb.dev/stash/internal/history"
)

// ErrPaste marks errors from the paste keystroke. The item is on the
// clipboard even when it is returned.
var ErrPaste = errors.New("paste failed")

type Config struct {
	IgnorePatterns []string
	IgnoreRegex    bool
	IgnoredApps    []string

	// PasteByDefault makes a plain selection paste and the alternate
	// selection only copy.
	PasteByDefault bool
}

// Service is the single sequential consumer of clipboard events.
type Service struct {
	store   *history.Store
	backend clip.Backend
	filter  *Filter
	cfg     Config

	mu sync.Mutex
	// lastID is the item the most recent clipboard content was recorded as,
	// or "" when that content was not recorded.
	lastID string
}

func New(store *history.Store, backend clip.Backend, cfg Config) (*Service, error) {
	f, err := NewFilter(cfg.IgnorePatterns, cfg.IgnoreRegex, cfg.IgnoredApps)
	if err != nil {
		return nil, err
	}
	return &Service{store: store, backend: backend, filter: f, cfg: cfg}, nil
}

// Run handles clipboard changes until ctx is cancelled. Commit failures are
// logged; the history has already rolled back by then.
func (s *Service) Run(ctx context.Context) error {
	slog.Info("clipboard capture started", "backend", s.backend.Name())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.backend.Watch():
			if err := s.Capture(ctx); err != nil {
				slog.Error("clipboard capture failed", "err", err)
			}
		}
	}
}

// Capture reads the clipboard once and records what it finds. An empty
// clipboard right after a recorded copy means the source withdrew it; that
// item is removed if it is still the most recent one.
func (s *Service) Capture(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.backend.Read()
	if err != nil {
		return fmt.Errorf("read clipboard: %w", err)
	}

	if snap.Empty() {
		id := s.lastID
		s.lastID = ""
		if id == "" {
			return nil
		}
		it, ok := s.store.RemoveRecent(id)
		if !ok {
			return nil
		}
		slog.Debug("copy withdrawn, removed from history", "id", it.ID)
		return s.store.Commit(ctx)
	}

	if s.filter.ShouldIgnore(snap) {
		s.lastID = ""
		slog.Debug("clipboard change ignored", "application", snap.Application)
		return nil
	}

	it := s.store.Add(snap)
	if it == nil {
		s.lastID = ""
		return nil
	}
	s.lastID = it.ID
	slog.Debug("clipboard captured",
		"id", it.ID,
		"title", it.Title,
		"copies", it.NumberOfCopies,
	)
	return s.store.Commit(ctx)
}

// Apply runs fn against the history and commits the result, serialised with
// clipboard captures so that one caller never commits or rolls back
// another's pending changes. An error from fn discards its changes.
func (s *Service) Apply(ctx context.Context, fn func(*history.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(s.store); err != nil {
		s.store.Rollback()
		return err
	}
	return s.store.Commit(ctx)
}

// Store returns the history the service feeds.
func (s *Service) Store() *history.Store { return s.store }

// Backend returns the clipboard the service reads from.
func (s *Service) Backend() clip.Backend { return s.backend }

// Select puts item back on the clipboard. With PasteByDefault unset a
// plain selection only copies and alt also pastes; the setting swaps them.
func (s *Service) Select(item *history.Item, alt bool) (pasted bool, err error) {
	if err := s.backend.Write(item.Contents); err != nil {
		return false, fmt.Errorf("write clipboard: %w", err)
	}
	if s.cfg.PasteByDefault == alt {
		return false, nil
	}

	p, ok := s.backend.(clip.Paster)
	if !ok {
		return false, fmt.Errorf("%w: %w", ErrPaste, clip.ErrPasteUnsupported)
	}
	if err := p.Paste(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrPaste, err)
	}
	return true, nil
}
