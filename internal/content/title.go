package content

import (
	"strings"

	"github.com/rivo/uniseg"
)

// Ellipsis joins the head and tail of a shortened title.
const Ellipsis = "..."

var whitespaceGlyphs = strings.NewReplacer(
	" ", "·",
	"\n", "⏎",
	"\t", "⇥",
)

// Visible replaces spaces, newlines and tabs with printable glyphs, one for
// one. Runs are not collapsed.
func Visible(s string) string {
	return whitespaceGlyphs.Replace(s)
}

// Shorten keeps s when it has at most limit user-perceived characters.
// Otherwise it returns the first limit-ceil(limit/3) characters, Ellipsis, and
// the last ceil(limit/3) characters, so the result is limit+len(Ellipsis) long.
func Shorten(s string, limit int) string {
	if limit <= 0 || uniseg.GraphemeClusterCount(s) <= limit {
		return s
	}

	var clusters []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}

	tail := (limit + 2) / 3
	head := limit - tail

	var b strings.Builder
	b.Grow(len(s))
	for _, c := range clusters[:head] {
		b.WriteString(c)
	}
	b.WriteString(Ellipsis)
	for _, c := range clusters[len(clusters)-tail:] {
		b.WriteString(c)
	}
	return b.String()
}

// Length returns the number of user-perceived characters in s.
func Length(s string) int {
	return uniseg.GraphemeClusterCount(s)
}
