package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.klb.dev/stash/internal/content"
)

// fakeRepo keeps the last saved snapshot and enforces pins like a real
// repository would.
type fakeRepo struct {
	saved   []*Item
	saves   int
	failErr error
}

func (r *fakeRepo) Load(context.Context) ([]*Item, error) { return cloneAll(r.saved), nil }

func (r *fakeRepo) Save(_ context.Context, items []*Item) error {
	if r.failErr != nil {
		return r.failErr
	}
	if err := ValidatePins(items); err != nil {
		return err
	}
	r.saved = cloneAll(items)
	r.saves++
	return nil
}

func (r *fakeRepo) Close() error { return nil }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func snap(s string) content.Snapshot {
	return content.Snapshot{Contents: []content.Content{{Type: content.TypeText, Value: []byte(s)}}}
}

func newStore(t *testing.T, size int) (*Store, *fakeRepo) {
	t.Helper()
	repo := &fakeRepo{}
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(repo, Config{Size: size}, WithClock(clock.now)), repo
}

func titles(items []*Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAdd_InsertsAtFront(t *testing.T) {
	s, _ := newStore(t, 10)
	s.Add(snap("one"))
	s.Add(snap("two"))
	s.Add(snap("three"))

	got := titles(s.All())
	want := []string{"three", "two", "one"}
	if !equalStrings(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestAdd_IgnoresEmptySnapshot(t *testing.T) {
	s, _ := newStore(t, 10)
	if it := s.Add(content.Snapshot{}); it != nil {
		t.Fatalf("expected nil for empty snapshot, got %+v", it)
	}
	if it := s.Add(snap("")); it != nil {
		t.Fatalf("expected nil for empty payload, got %+v", it)
	}
	if s.Len() != 0 || s.Dirty() {
		t.Fatal("expected no change")
	}
}

func TestAdd_PromotesIdenticalContent(t *testing.T) {
	s, _ := newStore(t, 10)
	first := s.Add(snap("foo"))
	s.Add(snap("bar"))
	again := s.Add(snap("foo"))

	if again.ID != first.ID {
		t.Fatalf("expected promotion of %s, got new item %s", first.ID, again.ID)
	}
	if again.NumberOfCopies != 2 {
		t.Fatalf("copies = %d, want 2", again.NumberOfCopies)
	}
	if !again.LastCopiedAt.After(first.LastCopiedAt) {
		t.Fatal("expected LastCopiedAt to increase")
	}
	if !again.FirstCopiedAt.Equal(first.FirstCopiedAt) {
		t.Fatal("expected FirstCopiedAt to be kept")
	}
	all := s.All()
	if len(all) != 2 || all[0].ID != first.ID {
		t.Fatalf("expected promoted item first, got %v", titles(all))
	}
}

func TestAdd_DifferentRepresentationsAreDistinct(t *testing.T) {
	s, _ := newStore(t, 10)
	s.Add(snap("foo"))
	s.Add(content.Snapshot{Contents: []content.Content{
		{Type: content.TypeText, Value: []byte("foo")},
		{Type: content.TypeHTML, Value: []byte("<b>foo</b>")},
	}})
	if s.Len() != 2 {
		t.Fatalf("expected 2 items, got %d", s.Len())
	}
}

func TestAdd_TimestampsStrictlyIncrease(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(nil, Config{}, WithClock(func() time.Time { return fixed }))
	a := s.Add(snap("a"))
	b := s.Add(snap("a"))
	c := s.Add(snap("a"))
	if !b.LastCopiedAt.After(a.LastCopiedAt) || !c.LastCopiedAt.After(b.LastCopiedAt) {
		t.Fatalf("timestamps not increasing: %v %v %v", a.LastCopiedAt, b.LastCopiedAt, c.LastCopiedAt)
	}
	if c.NumberOfCopies != 3 {
		t.Fatalf("copies = %d, want 3", c.NumberOfCopies)
	}
}

func TestAdd_EvictsLeastRecentUnpinned(t *testing.T) {
	s, _ := newStore(t, 2)
	one := s.Add(snap("one"))
	s.Add(snap("two"))
	s.SetPin(one.ID, "a")

	s.Add(snap("three"))
	got := titles(s.All())
	want := []string{"three", "two", "one"}
	if !equalStrings(got, want) {
		t.Fatalf("after pin: %v, want %v", got, want)
	}

	s.Add(snap("four"))
	got = titles(s.All())
	want = []string{"four", "three", "one"}
	if !equalStrings(got, want) {
		t.Fatalf("after eviction: %v, want %v", got, want)
	}
}

func TestRemoveRecent(t *testing.T) {
	s, _ := newStore(t, 10)
	s.Add(snap("one"))
	two := s.Add(snap("two"))

	if _, ok := s.RemoveRecent("someone-else"); ok {
		t.Fatal("expected no removal when the top item is not the withdrawn one")
	}

	removed, ok := s.RemoveRecent(two.ID)
	if !ok || removed.ID != two.ID {
		t.Fatalf("expected to remove %q, got %+v", two.Title, removed)
	}
	if got := titles(s.All()); !equalStrings(got, []string{"one"}) {
		t.Fatalf("remaining = %v", got)
	}
}

func TestRemoveRecent_KeepsPinned(t *testing.T) {
	s, _ := newStore(t, 10)
	it := s.Add(snap("one"))
	s.SetPin(it.ID, "p")
	if _, ok := s.RemoveRecent(it.ID); ok {
		t.Fatal("expected pinned item to be kept")
	}
	if _, ok := (New(nil, Config{})).RemoveRecent(it.ID); ok {
		t.Fatal("expected false on empty history")
	}
}

func TestClear(t *testing.T) {
	for _, keep := range []bool{false, true} {
		t.Run(fmt.Sprintf("keepPinned=%v", keep), func(t *testing.T) {
			s, _ := newStore(t, 10)
			a := s.Add(snap("a"))
			s.Add(snap("b"))
			s.SetPin(a.ID, "a")

			s.Clear(keep)
			want := 0
			if keep {
				want = 1
			}
			if s.Len() != want {
				t.Fatalf("len = %d, want %d", s.Len(), want)
			}
			if keep {
				if _, ok := s.Get(a.ID); !ok {
					t.Fatal("expected pinned item to survive")
				}
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t, 10)
	a := s.Add(snap("a"))
	if !s.Delete(a.ID) {
		t.Fatal("expected delete to succeed")
	}
	if s.Delete(a.ID) {
		t.Fatal("expected second delete to fail")
	}
}

func TestPinPosition(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := New(nil, Config{PinPosition: PinTop}, WithClock(clock.now))
	a := s.Add(snap("a"))
	s.Add(snap("b"))
	s.SetPin(a.ID, "x")
	if got := titles(s.All()); !equalStrings(got, []string{"a", "b"}) {
		t.Fatalf("top: %v", got)
	}

	s = New(nil, Config{PinPosition: PinBottom}, WithClock(clock.now))
	s.Add(snap("a"))
	b := s.Add(snap("b"))
	s.SetPin(b.ID, "x")
	if got := titles(s.All()); !equalStrings(got, []string{"a", "b"}) {
		t.Fatalf("bottom: %v", got)
	}
}

func TestCommit_DuplicatePinFails(t *testing.T) {
	s, repo := newStore(t, 10)
	foo := s.Add(snap("foo"))
	bar := s.Add(snap("bar"))
	if err := s.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !s.SetPin(foo.ID, "a") || !s.SetPin(bar.ID, "a") {
		t.Fatal("SetPin must not fail for known items")
	}
	err := s.Commit(context.Background())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrDuplicatePin) {
		t.Fatalf("expected ErrDuplicatePin, got %v", err)
	}

	if repo.saves != 1 {
		t.Fatalf("repository written %d times, want 1", repo.saves)
	}
	for _, it := range repo.saved {
		if it.Pin != "" {
			t.Fatalf("persisted pin %q leaked", it.Pin)
		}
	}
	for _, it := range s.All() {
		if it.Pin != "" {
			t.Fatalf("working set not rolled back: %q has pin %q", it.Title, it.Pin)
		}
	}
	if s.Dirty() {
		t.Fatal("expected no pending changes after rejected commit")
	}
}

func TestCommit_InvalidPins(t *testing.T) {
	for _, pin := range []string{"1", "C", "ab", "é"} {
		t.Run(pin, func(t *testing.T) {
			s, repo := newStore(t, 10)
			it := s.Add(snap("foo"))
			s.SetPin(it.ID, pin)
			err := s.Commit(context.Background())
			if !errors.Is(err, ErrInvalidPin) {
				t.Fatalf("expected ErrInvalidPin, got %v", err)
			}
			if repo.saves != 0 || s.Len() != 0 {
				t.Fatal("expected the whole batch to be rejected")
			}
		})
	}
}

func TestCommit_EmptyPins(t *testing.T) {
	s, repo := newStore(t, 10)
	a := s.Add(snap("foo"))
	b := s.Add(snap("bar"))
	s.SetPin(a.ID, "")
	s.SetPin(b.ID, "")
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("empty pins must commit: %v", err)
	}
	if len(repo.saved) != 2 {
		t.Fatalf("saved %d items, want 2", len(repo.saved))
	}
	for _, it := range repo.saved {
		if it.Pin != "" {
			t.Fatalf("pin = %q, want empty", it.Pin)
		}
	}
}

func TestCommit_RepositoryFailureRollsBack(t *testing.T) {
	s, repo := newStore(t, 10)
	s.Add(snap("kept"))
	if err := s.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	repo.failErr = errors.New("disk full")
	s.Add(snap("lost"))
	if err := s.Commit(context.Background()); err == nil {
		t.Fatal("expected commit error")
	}
	if got := titles(s.All()); !equalStrings(got, []string{"kept"}) {
		t.Fatalf("after failed commit: %v", got)
	}
}

func TestLoad(t *testing.T) {
	s, repo := newStore(t, 10)
	s.Add(snap("old"))
	s.Add(snap("new"))
	if err := s.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Stored titles are ignored; Load re-derives them from contents.
	for _, it := range repo.saved {
		it.Title = "stale"
	}

	fresh := New(repo, Config{})
	if err := fresh.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := titles(fresh.All()); !equalStrings(got, []string{"new", "old"}) {
		t.Fatalf("loaded = %v", got)
	}
	// Loaded items must still deduplicate.
	fresh.Add(snap("old"))
	if fresh.Len() != 2 {
		t.Fatalf("expected promotion after load, got %d items", fresh.Len())
	}
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t, 1)
	events, cancel := s.Subscribe()
	defer cancel()

	s.Add(snap("a"))
	s.Add(snap("b"))
	_ = s.Commit(context.Background())

	want := []EventKind{EventAdded, EventAdded, EventEvicted, EventCommitted}
	for _, k := range want {
		select {
		case ev := <-events:
			if ev.Kind != k {
				t.Fatalf("event = %s, want %s", ev.Kind, k)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %s", k)
		}
	}
}

func TestAll_ReturnsCopies(t *testing.T) {
	s, _ := newStore(t, 10)
	s.Add(snap("a"))
	all := s.All()
	all[0].Pin = "z"
	all[0].Contents[0].Value[0] = 'X'
	again := s.All()
	if again[0].Pin != "" || string(again[0].Contents[0].Value) != "a" {
		t.Fatal("All must not expose internal items")
	}
}
