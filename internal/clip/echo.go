package clip

import (
	"bytes"
	"sync"

	"go.klb.dev/stash/internal/content"
)

// echo remembers the full contents of the last write-back. Clipboards that
// hold one format at a time only keep part of them, and reading that part
// back should still yield the original item.
type echo struct {
	mu   sync.Mutex
	full []content.Content
	kept content.Content
}

// remember records that full was written and only kept reached the clipboard.
func (e *echo) remember(full []content.Content, kept content.Content) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.full = content.Clone(full)
	e.kept = content.Content{Type: kept.Type, Value: bytes.Clone(kept.Value)}
}

// restore returns the remembered contents when snap holds exactly the kept
// representation. Any other snapshot forgets the last write.
func (e *echo) restore(snap content.Snapshot) content.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.full == nil {
		return snap
	}
	if len(snap.Contents) == 1 && snap.Contents[0].Type == e.kept.Type && bytes.Equal(snap.Contents[0].Value, e.kept.Value) {
		return content.Snapshot{Contents: content.Clone(e.full), Application: snap.Application}
	}
	e.full = nil
	return snap
}
