package clip

import (
	"sync"

	"go.klb.dev/stash/internal/content"
)

// Memory is a clipboard that lives in process memory. It is used when no
// display server is available and by tests.
type Memory struct {
	mu      sync.Mutex
	snap    content.Snapshot
	watchCh chan struct{}
	pastes  int
}

func NewMemory() *Memory {
	return &Memory{watchCh: make(chan struct{}, 1)}
}

func (m *Memory) Name() string { return "memory (headless)" }

func (m *Memory) Read() (content.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return content.Snapshot{
		Contents:    content.Clone(m.snap.Contents),
		Application: m.snap.Application,
	}, nil
}

func (m *Memory) Write(cs []content.Content) error {
	m.Set(content.Snapshot{Contents: cs})
	return nil
}

// Set replaces the clipboard as if application app had copied.
func (m *Memory) Set(snap content.Snapshot) {
	m.mu.Lock()
	m.snap = content.Snapshot{Contents: content.Clone(snap.Contents), Application: snap.Application}
	m.mu.Unlock()
	notify(m.watchCh)
}

func (m *Memory) Watch() <-chan struct{} { return m.watchCh }
func (m *Memory) Close()                 {}

// Paste counts calls; there is no focused application to paste into.
func (m *Memory) Paste() error {
	m.mu.Lock()
	m.pastes++
	m.mu.Unlock()
	return nil
}

// Pastes returns how many times Paste was called.
func (m *Memory) Pastes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pastes
}

var (
	_ Backend = (*Memory)(nil)
	_ Paster  = (*Memory)(nil)
)
