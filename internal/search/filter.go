// Package search filters history by title, assigns hotkeys and moves the
// highlighted selection through the visible rows.
package search

import (
	"strings"

	"golang.org/x/text/cases"

	"go.klb.dev/stash/internal/history"
)

// Match pairs an item with its visibility under a query.
type Match struct {
	Item    *history.Item
	Visible bool
}

// Filter reports, for each item in order, whether its title contains query.
// Matching is case-insensitive and the empty query matches everything.
func Filter(items []*history.Item, query string) []Match {
	m := newMatcher(query)
	out := make([]Match, len(items))
	for i, it := range items {
		out[i] = Match{Item: it, Visible: m.match(it.Title)}
	}
	return out
}

type matcher struct {
	caser cases.Caser
	query string
}

func newMatcher(query string) *matcher {
	m := &matcher{caser: cases.Fold()}
	m.query = m.fold(query)
	return m
}

func (m *matcher) fold(s string) string {
	return m.caser.String(s)
}

func (m *matcher) match(s string) bool {
	if m.query == "" {
		return true
	}
	return strings.Contains(m.fold(s), m.query)
}
