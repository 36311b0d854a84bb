// Package clip provides a unified interface to the system clipboard across
// platforms. Build constraints select the implementation:
//
//	system.go      macOS, Windows and Linux via golang.design/x/clipboard, polling
//	system_other.go  everything else, in-memory only
//	paste_*.go     the paste keystroke, where the platform has one
package clip

import (
	"errors"

	"go.klb.dev/stash/internal/content"
)

// ErrPasteUnsupported is returned by Paste on platforms without a way to
// synthesise the paste keystroke.
var ErrPasteUnsupported = errors.New("paste is not supported on this platform")

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard contents. An empty snapshot means
	// the clipboard is empty or holds only unsupported types.
	Read() (content.Snapshot, error)

	// Write replaces the clipboard contents with the supported
	// representations in cs.
	Write(cs []content.Content) error

	// Watch returns a channel that receives a signal whenever the clipboard
	// changes. The channel is never closed. The caller should call Read()
	// when it receives from the channel.
	Watch() <-chan struct{}

	// Close releases any resources held by the backend.
	Close()
}

// Paster sends the platform paste keystroke to the focused application.
type Paster interface {
	Paste() error
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
