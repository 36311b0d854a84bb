package capture

import (
	"context"
	"errors"
	"testing"

	"go.klb.dev/stash/internal/clip"
	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/history"
	"go.klb.dev/stash/internal/storage/memory"
)

func text(s string) content.Snapshot {
	return content.Snapshot{Contents: []content.Content{{Type: content.TypeText, Value: []byte(s)}}}
}

func setup(t *testing.T, cfg Config) (*Service, *history.Store, *clip.Memory, *memory.Store) {
	t.Helper()
	repo := memory.New()
	store := history.New(repo, history.Config{Size: 10})
	cb := clip.NewMemory()
	svc, err := New(store, cb, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return svc, store, cb, repo
}

func capture(t *testing.T, svc *Service, cb *clip.Memory, snap content.Snapshot) {
	t.Helper()
	cb.Set(snap)
	if err := svc.Capture(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestCapture_AddsAndCommits(t *testing.T) {
	svc, store, cb, repo := setup(t, Config{})

	capture(t, svc, cb, text("foo"))
	capture(t, svc, cb, text("bar"))
	capture(t, svc, cb, text("foo"))

	all := store.All()
	if len(all) != 2 || all[0].Title != "foo" || all[0].NumberOfCopies != 2 {
		t.Fatalf("unexpected history: %+v", all)
	}

	saved, err := repo.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(saved) != 2 {
		t.Fatalf("expected 2 committed items, got %d", len(saved))
	}
}

func TestCapture_RemovedCopy(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{})

	capture(t, svc, cb, text("keep"))
	capture(t, svc, cb, text("secret"))
	capture(t, svc, cb, content.Snapshot{})

	all := store.All()
	if len(all) != 1 || all[0].Title != "keep" {
		t.Fatalf("expected only keep, got %+v", all)
	}

	// A second empty read is not another withdrawal.
	capture(t, svc, cb, content.Snapshot{})
	if store.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", store.Len())
	}
}

func TestCapture_IgnoredCopyWithdrawn(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{IgnorePatterns: []string{"secret"}})

	capture(t, svc, cb, text("keep"))
	capture(t, svc, cb, text("my secret password"))
	capture(t, svc, cb, content.Snapshot{})

	all := store.All()
	if len(all) != 1 || all[0].Title != "keep" {
		t.Fatalf("withdrawing an ignored copy must not touch history, got %+v", all)
	}
}

func TestCapture_DeleteThenClear(t *testing.T) {
	svc, store, cb, repo := setup(t, Config{})

	capture(t, svc, cb, text("one"))
	capture(t, svc, cb, text("two"))

	top := store.All()[0]
	err := svc.Apply(context.Background(), func(h *history.Store) error {
		h.Delete(top.ID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	capture(t, svc, cb, content.Snapshot{})

	all := store.All()
	if len(all) != 1 || all[0].Title != "one" {
		t.Fatalf("expected one to survive, got %+v", all)
	}
	saved, _ := repo.Load(context.Background())
	if len(saved) != 1 {
		t.Fatalf("expected 1 committed item, got %d", len(saved))
	}
}

func TestCapture_EmptyAtStartup(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{})
	store.Add(text("old"))

	capture(t, svc, cb, content.Snapshot{})
	if store.Len() != 1 {
		t.Fatal("an empty clipboard at startup must not remove history")
	}
}

func TestCapture_Ignore(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{
		IgnorePatterns: []string{"password="},
		IgnoredApps:    []string{"com.example.vault"},
	})

	capture(t, svc, cb, text("user PASSWORD=hunter2"))
	snap := text("plain")
	snap.Application = "com.example.vault"
	capture(t, svc, cb, snap)
	capture(t, svc, cb, text("hello"))

	all := store.All()
	if len(all) != 1 || all[0].Title != "hello" {
		t.Fatalf("expected only hello, got %+v", all)
	}
}

func TestCapture_IgnoreRegex(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{IgnorePatterns: []string{`^\d{6}$`}, IgnoreRegex: true})

	capture(t, svc, cb, text("123456"))
	capture(t, svc, cb, text("1234567"))

	all := store.All()
	if len(all) != 1 || all[0].Title != "1234567" {
		t.Fatalf("expected only 1234567, got %+v", all)
	}
}

func TestNew_BadRegex(t *testing.T) {
	_, err := New(history.New(nil, history.Config{}), clip.NewMemory(), Config{
		IgnorePatterns: []string{"("},
		IgnoreRegex:    true,
	})
	if err == nil {
		t.Fatal("expected invalid regex to be rejected")
	}
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name           string
		pasteByDefault bool
		alt            bool
		wantPaste      bool
	}{
		{"copy", false, false, false},
		{"alt pastes", false, true, true},
		{"paste by default", true, false, true},
		{"alt copies when pasting by default", true, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, cb, _ := setup(t, Config{PasteByDefault: tt.pasteByDefault})
			it := store.Add(text("foo"))

			pasted, err := svc.Select(it, tt.alt)
			if err != nil {
				t.Fatal(err)
			}
			if pasted != tt.wantPaste || (cb.Pastes() == 1) != tt.wantPaste {
				t.Fatalf("pasted=%v pastes=%d, want paste=%v", pasted, cb.Pastes(), tt.wantPaste)
			}
			snap, _ := cb.Read()
			if !content.Equal(snap.Contents, it.Contents) {
				t.Fatalf("clipboard holds %+v", snap.Contents)
			}
		})
	}
}

type copyOnly struct{ *clip.Memory }

// Paste is hidden so the backend no longer satisfies clip.Paster.
func (copyOnly) Paste() {}

func TestSelect_PasteUnsupported(t *testing.T) {
	store := history.New(nil, history.Config{})
	svc, err := New(store, copyOnly{clip.NewMemory()}, Config{PasteByDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	it := store.Add(text("foo"))
	if _, err := svc.Select(it, false); !errors.Is(err, clip.ErrPasteUnsupported) {
		t.Fatalf("expected ErrPasteUnsupported, got %v", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	svc, store, cb, _ := setup(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	events, stop := store.Subscribe()
	defer stop()

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	cb.Set(text("foo"))
	for ev := range events {
		if ev.Kind == history.EventCommitted {
			break
		}
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 item, got %d", store.Len())
	}
}

func TestApply(t *testing.T) {
	svc, store, _, repo := setup(t, Config{})
	it := store.Add(text("foo"))

	err := svc.Apply(context.Background(), func(h *history.Store) error {
		h.SetPin(it.ID, "f")
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	saved, _ := repo.Load(context.Background())
	if len(saved) != 1 || saved[0].Pin != "f" {
		t.Fatalf("expected pinned item to be committed, got %+v", saved)
	}

	boom := errors.New("boom")
	err = svc.Apply(context.Background(), func(h *history.Store) error {
		h.Clear(false)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if store.Len() != 1 || store.Dirty() {
		t.Fatal("expected failed apply to be rolled back")
	}
}

func TestApply_InvalidPin(t *testing.T) {
	svc, store, _, _ := setup(t, Config{})
	it := store.Add(text("foo"))
	if err := store.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := svc.Apply(context.Background(), func(h *history.Store) error {
		h.SetPin(it.ID, "1")
		return nil
	})
	var verr *history.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got, _ := store.Get(it.ID)
	if got.Pin != "" {
		t.Fatalf("expected pin to be rolled back, got %q", got.Pin)
	}
}
