package search

import (
	"strconv"

	"go.klb.dev/stash/internal/history"
)

// DefaultMaxHotkeys is the number of rows that get a "1".."9" shortcut.
const DefaultMaxHotkeys = 9

// Kind distinguishes history rows from the menu's structural rows.
type Kind int

const (
	KindItem Kind = iota
	KindSeparator
	KindSystem // footer actions such as Clear or Quit
)

func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindSeparator:
		return "separator"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Entry is one menu row.
type Entry struct {
	Kind  Kind
	Title string
	Item  *history.Item // nil unless Kind == KindItem

	Hotkey   string
	Visible  bool
	Disabled bool
}

func (e *Entry) eligible() bool {
	return e.Visible && !e.Disabled && e.Kind != KindSeparator
}

// Highlighter is told about every highlight change. A nil entry means
// nothing is highlighted.
type Highlighter interface {
	Highlight(e *Entry)
}

type Config struct {
	MaxHotkeys  int
	Highlighter Highlighter
}

// Menu holds history rows followed by footer rows (separators and system
// actions). It is not safe for concurrent use.
type Menu struct {
	cfg Config

	items  []*Entry
	footer []*Entry

	query       string
	highlighted *Entry
}

func NewMenu(cfg Config) *Menu {
	if cfg.MaxHotkeys <= 0 {
		cfg.MaxHotkeys = DefaultMaxHotkeys
	}
	return &Menu{cfg: cfg}
}

// SetItems replaces the history rows and re-applies the current query.
func (m *Menu) SetItems(items []*history.Item) {
	m.items = make([]*Entry, 0, len(items))
	for _, it := range items {
		m.items = append(m.items, &Entry{Kind: KindItem, Title: it.Title, Item: it, Visible: true})
	}
	m.Update(m.query)
}

func (m *Menu) AddSeparator() {
	m.footer = append(m.footer, &Entry{Kind: KindSeparator, Visible: true})
}

func (m *Menu) AddSystem(title string) *Entry {
	e := &Entry{Kind: KindSystem, Title: title, Visible: true}
	m.footer = append(m.footer, e)
	return e
}

// SetEnabled toggles whether entry i can be highlighted. Disabled history
// rows are hidden while a query is active.
func (m *Menu) SetEnabled(i int, enabled bool) {
	es := m.Entries()
	if i < 0 || i >= len(es) {
		return
	}
	es[i].Disabled = !enabled
}

// Entries returns all rows in display order.
func (m *Menu) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.items)+len(m.footer))
	out = append(out, m.items...)
	return append(out, m.footer...)
}

// Query returns the query last passed to Update.
func (m *Menu) Query() string { return m.query }

// Update applies query: it recomputes visibility, hands out hotkeys in
// visible order and highlights the first eligible row.
func (m *Menu) Update(query string) {
	m.query = query

	items := make([]*history.Item, len(m.items))
	for i, e := range m.items {
		items[i] = e.Item
	}
	for i, match := range Filter(items, query) {
		e := m.items[i]
		e.Visible = query == "" || (!e.Disabled && match.Visible)
	}
	for _, e := range m.footer {
		e.Visible = true
	}

	n := 0
	for _, e := range m.Entries() {
		e.Hotkey = ""
		if e.Kind == KindItem && e.Visible && !e.Disabled && n < m.cfg.MaxHotkeys {
			n++
			e.Hotkey = strconv.Itoa(n)
		}
	}

	var first *Entry
	for _, e := range m.Entries() {
		if e.eligible() {
			first = e
			break
		}
	}
	m.highlight(first)
}

// Highlighted returns the highlighted row, or nil.
func (m *Menu) Highlighted() *Entry { return m.highlighted }

// SelectNext highlights the next eligible row after the current one,
// wrapping past the end. With no eligible row the highlight is cleared.
func (m *Menu) SelectNext() { m.step(1) }

// SelectPrevious is SelectNext in the other direction.
func (m *Menu) SelectPrevious() { m.step(-1) }

func (m *Menu) step(dir int) {
	es := m.Entries()
	if len(es) == 0 {
		m.highlight(nil)
		return
	}

	start := -1
	for i, e := range es {
		if e == m.highlighted {
			start = i
			break
		}
	}
	if start < 0 && dir < 0 {
		start = len(es)
	}

	for k := 1; k <= len(es); k++ {
		i := ((start+dir*k)%len(es) + len(es)) % len(es)
		if es[i].eligible() {
			m.highlight(es[i])
			return
		}
	}
	m.highlight(nil)
}

// SelectCurrent returns the highlighted row if it can be acted on.
func (m *Menu) SelectCurrent() (*Entry, bool) {
	if m.highlighted == nil || !m.highlighted.eligible() {
		return nil, false
	}
	return m.highlighted, true
}

// ByHotkey returns the row labelled key.
func (m *Menu) ByHotkey(key string) (*Entry, bool) {
	if key == "" {
		return nil, false
	}
	for _, e := range m.items {
		if e.Hotkey == key {
			return e, true
		}
	}
	return nil, false
}

func (m *Menu) highlight(e *Entry) {
	if m.highlighted == e {
		return
	}
	m.highlighted = e
	if m.cfg.Highlighter != nil {
		m.cfg.Highlighter.Highlight(e)
	}
}
