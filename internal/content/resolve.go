package content

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	"golang.org/x/text/unicode/norm"
)

// DefaultMaxTitleLength is the title length, in user-perceived characters,
// above which titles are shortened around an ellipsis.
const DefaultMaxTitleLength = 50

// Options configures a Resolver.
type Options struct {
	// MaxTitleLength defaults to DefaultMaxTitleLength when <= 0.
	MaxTitleLength int

	// ReadFile loads files referenced by file URLs. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)
}

// Resolver derives the display title and preview image of a content list.
// It never fails: unusable content resolves to an empty title and nil image.
type Resolver struct {
	maxLen   int
	readFile func(string) ([]byte, error)
	rules    []rule
}

// rule is one step of the title priority list. match decides whether the
// rule applies; title produces the raw (unformatted) title and whether it is
// text that should go through glyph substitution and truncation.
type rule struct {
	name  string
	match func(r *Resolver, cs []Content) bool
	title func(r *Resolver, cs []Content) (string, bool)
}

// NewResolver returns a Resolver configured by opts.
func NewResolver(opts Options) *Resolver {
	if opts.MaxTitleLength <= 0 {
		opts.MaxTitleLength = DefaultMaxTitleLength
	}
	if opts.ReadFile == nil {
		opts.ReadFile = os.ReadFile
	}
	r := &Resolver{maxLen: opts.MaxTitleLength, readFile: opts.ReadFile}
	r.rules = []rule{
		{
			name: "universal-clipboard-text",
			match: func(_ *Resolver, cs []Content) bool {
				return has(cs, TypeUniversalClipboard) && hasFileURL(cs) && has(cs, TypeText)
			},
			title: func(_ *Resolver, cs []Content) (string, bool) {
				return fileName(fileURL(cs)), true
			},
		},
		{
			name: "universal-clipboard-image",
			match: func(r *Resolver, cs []Content) bool {
				return has(cs, TypeUniversalClipboard) && hasFileURL(cs) && !has(cs, TypeText) &&
					r.fileImage(cs) != nil
			},
			title: func(*Resolver, []Content) (string, bool) { return "", false },
		},
		{
			name:  "file",
			match: func(_ *Resolver, cs []Content) bool { return hasFileURL(cs) },
			title: func(_ *Resolver, cs []Content) (string, bool) {
				return decodeURL(fileURL(cs)), true
			},
		},
		{
			name: "rich-text",
			match: func(_ *Resolver, cs []Content) bool {
				return nonEmpty(cs, TypeRTF) || nonEmpty(cs, TypeHTML)
			},
			title: func(_ *Resolver, cs []Content) (string, bool) {
				if c, ok := find(cs, TypeRTF); ok && len(c.Value) > 0 {
					return rtfText(c.Value), true
				}
				c, _ := find(cs, TypeHTML)
				return htmlText(c.Value), true
			},
		},
		{
			name:  "image",
			match: func(_ *Resolver, cs []Content) bool { return hasImage(cs) && !has(cs, TypeText) },
			title: func(*Resolver, []Content) (string, bool) { return "", false },
		},
		{
			name:  "text",
			match: func(_ *Resolver, cs []Content) bool { return has(cs, TypeText) },
			title: func(_ *Resolver, cs []Content) (string, bool) {
				c, _ := find(cs, TypeText)
				return string(c.Value), true
			},
		},
	}
	return r
}

// Rule returns the name of the rule that decides the title of cs, or "" when
// none applies.
func (r *Resolver) Rule(cs []Content) string {
	for _, rl := range r.rules {
		if rl.match(r, cs) {
			return rl.name
		}
	}
	return ""
}

// Title resolves the display title of cs.
func (r *Resolver) Title(cs []Content) string {
	for _, rl := range r.rules {
		if !rl.match(r, cs) {
			continue
		}
		s, text := rl.title(r, cs)
		if !text || s == "" {
			return s
		}
		return Shorten(Visible(s), r.maxLen)
	}
	return ""
}

// Image resolves the preview image of cs: the referenced file for
// universal-clipboard transfers, otherwise the first decodable image content.
func (r *Resolver) Image(cs []Content) image.Image {
	if has(cs, TypeUniversalClipboard) && hasFileURL(cs) && !has(cs, TypeText) {
		if img := r.fileImage(cs); img != nil {
			return img
		}
	}
	for _, c := range cs {
		if !c.Type.IsImage() || len(c.Value) == 0 {
			continue
		}
		if img := decodeImage(c.Value); img != nil {
			return img
		}
	}
	return nil
}

// Resolve returns both title and image.
func (r *Resolver) Resolve(cs []Content) (string, image.Image) {
	return r.Title(cs), r.Image(cs)
}

func (r *Resolver) fileImage(cs []Content) image.Image {
	p := filePath(fileURL(cs))
	if p == "" {
		return nil
	}
	b, err := r.readFile(p)
	if err != nil {
		return nil
	}
	return decodeImage(b)
}

func decodeImage(b []byte) image.Image {
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil
	}
	return img
}

func nonEmpty(cs []Content, t Type) bool {
	c, ok := find(cs, t)
	return ok && len(c.Value) > 0
}

func hasFileURL(cs []Content) bool { return fileURL(cs) != "" }

// fileURL returns the first URL of the file reference content. uri-list
// payloads may carry several CRLF separated lines and # comments.
func fileURL(cs []Content) string {
	c, ok := find(cs, TypeFileURL)
	if !ok {
		return ""
	}
	for _, line := range strings.Split(string(c.Value), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return line
	}
	return ""
}

// decodeURL percent-decodes raw and normalizes it to NFC so that paths
// reported in decomposed form compare and render like typed text.
func decodeURL(raw string) string {
	s, err := url.PathUnescape(raw)
	if err != nil {
		s = raw
	}
	return norm.NFC.String(s)
}

func filePath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return ""
	}
	return norm.NFC.String(u.Path)
}

func fileName(raw string) string {
	p := filePath(raw)
	if p == "" {
		p = decodeURL(raw)
	}
	p = strings.TrimSuffix(p, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
