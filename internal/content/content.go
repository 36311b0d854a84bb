// Package content models the typed representations captured at a single
// clipboard change and resolves a display title and preview image from them.
package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Type identifies the format of a single clipboard representation.
type Type string

const (
	TypeText    Type = "text/plain"
	TypeRTF     Type = "text/rtf"
	TypeHTML    Type = "text/html"
	TypePNG     Type = "image/png"
	TypeTIFF    Type = "image/tiff"
	TypeJPEG    Type = "image/jpeg"
	TypeGIF     Type = "image/gif"
	TypeBMP     Type = "image/bmp"
	TypeFileURL Type = "text/uri-list"

	// TypeUniversalClipboard marks content that arrived from another device
	// through Handoff. Its value is normally empty.
	TypeUniversalClipboard Type = "com.apple.is-remote-clipboard"
)

// IsImage reports whether t carries bitmap data.
func (t Type) IsImage() bool {
	switch t {
	case TypePNG, TypeTIFF, TypeJPEG, TypeGIF, TypeBMP:
		return true
	}
	return false
}

// Content is one typed representation. Value may be empty.
type Content struct {
	Type  Type   `json:"type"`
	Value []byte `json:"value,omitempty"`
}

// Snapshot is everything the clipboard source reported for one change event.
type Snapshot struct {
	Contents    []Content
	Application string
}

// Empty reports whether the snapshot has no content with a non-empty value.
// Marker-only snapshots count as empty.
func (s Snapshot) Empty() bool {
	for _, c := range s.Contents {
		if len(c.Value) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of cs so callers cannot alias stored bytes.
func Clone(cs []Content) []Content {
	if cs == nil {
		return nil
	}
	out := make([]Content, len(cs))
	for i, c := range cs {
		out[i] = Content{Type: c.Type, Value: bytes.Clone(c.Value)}
	}
	return out
}

// Equal reports whether a and b hold byte-identical contents in the same order.
func Equal(a, b []Content) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || !bytes.Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// Fingerprint hashes the ordered (type, value) pairs. Byte-identical content
// lists always share a fingerprint.
func Fingerprint(cs []Content) string {
	if len(cs) == 0 {
		return ""
	}
	h := sha256.New()
	var n [8]byte
	for _, c := range cs {
		binary.BigEndian.PutUint64(n[:], uint64(len(c.Type)))
		h.Write(n[:])
		h.Write([]byte(c.Type))
		binary.BigEndian.PutUint64(n[:], uint64(len(c.Value)))
		h.Write(n[:])
		h.Write(c.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// find returns the first content of type t.
func find(cs []Content, t Type) (Content, bool) {
	for _, c := range cs {
		if c.Type == t {
			return c, true
		}
	}
	return Content{}, false
}

func has(cs []Content, t Type) bool {
	_, ok := find(cs, t)
	return ok
}

func hasImage(cs []Content) bool {
	for _, c := range cs {
		if c.Type.IsImage() {
			return true
		}
	}
	return false
}
