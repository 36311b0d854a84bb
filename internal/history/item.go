// Package history owns the ordered, bounded clipboard history: item model,
// dedup and promotion, eviction, pins, and the commit that persists it.
package history

import (
	"image"
	"time"

	"go.klb.dev/stash/internal/content"
)

// Item is one history entry. Title and Image are derived from Contents and
// are recomputed by the Store; they are never set independently.
type Item struct {
	ID       string            `json:"id"`
	Contents []content.Content `json:"contents"`

	Title string      `json:"title"`
	Image image.Image `json:"-"`

	// Pin is "" or one lowercase letter. Validity and uniqueness are checked
	// at commit, not here.
	Pin string `json:"pin,omitempty"`

	FirstCopiedAt  time.Time `json:"first_copied_at"`
	LastCopiedAt   time.Time `json:"last_copied_at"`
	NumberOfCopies int       `json:"number_of_copies"`
	Application    string    `json:"application,omitempty"`

	fp string // content fingerprint, set by the Store
}

// Pinned reports whether the item carries a pin.
func (it *Item) Pinned() bool { return it.Pin != "" }

// Text returns the first plain text representation, or "".
func (it *Item) Text() string {
	for _, c := range it.Contents {
		if c.Type == content.TypeText {
			return string(c.Value)
		}
	}
	return ""
}

// Clone returns a deep copy. The image is shared; it is never mutated.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	cp.Contents = content.Clone(it.Contents)
	return &cp
}

func cloneAll(items []*Item) []*Item {
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}
