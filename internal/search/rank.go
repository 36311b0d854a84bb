package search

import (
	"sort"
	"strings"
	"time"

	"go.klb.dev/stash/internal/history"
)

type RankOptions struct {
	Limit int       // 0 means no limit
	Now   time.Time // optional, for tests
}

// Rank returns the items matching query, best first. Against the item's
// full text (or its title when it has none): exact match beats prefix,
// prefix beats substring, and earlier substrings beat later ones. Pinned
// and recently copied items are boosted. Ties keep recency order.
// An empty query returns the items unranked.
func Rank(items []*history.Item, query string, opt RankOptions) []*history.Item {
	now := opt.Now
	if now.IsZero() {
		now = time.Now()
	}

	m := newMatcher(strings.TrimSpace(query))
	if m.query == "" {
		return limit(append([]*history.Item(nil), items...), opt.Limit)
	}

	type scored struct {
		it    *history.Item
		score int
	}

	var scoredItems []scored
	for _, it := range items {
		text := it.Text()
		if text == "" {
			text = it.Title
		}
		score := scoreMatch(m.fold(text), m.query)
		if score == 0 {
			continue
		}

		if it.Pinned() {
			score += 5000
		}

		age := now.Sub(it.LastCopiedAt)
		switch {
		case age < 10*time.Minute:
			score += 400
		case age < time.Hour:
			score += 250
		case age < 24*time.Hour:
			score += 120
		case age < 7*24*time.Hour:
			score += 40
		}

		scoredItems = append(scoredItems, scored{it: it, score: score})
	}

	sort.SliceStable(scoredItems, func(i, j int) bool {
		if scoredItems[i].score != scoredItems[j].score {
			return scoredItems[i].score > scoredItems[j].score
		}
		return scoredItems[i].it.LastCopiedAt.After(scoredItems[j].it.LastCopiedAt)
	})

	out := make([]*history.Item, len(scoredItems))
	for i, s := range scoredItems {
		out[i] = s.it
	}
	return limit(out, opt.Limit)
}

func scoreMatch(s, q string) int {
	if s == q {
		return 3000
	}
	if strings.HasPrefix(s, q) {
		return 2000
	}
	if idx := strings.Index(s, q); idx >= 0 {
		return 1000 + max(0, 200-idx)
	}
	return 0
}

func limit(items []*history.Item, n int) []*history.Item {
	if n > 0 && n < len(items) {
		return items[:n]
	}
	return items
}
