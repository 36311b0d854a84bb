package history

import "log/slog"

// EventKind names a change to the history.
type EventKind string

const (
	EventAdded      EventKind = "added"
	EventPromoted   EventKind = "promoted"
	EventRemoved    EventKind = "removed"
	EventEvicted    EventKind = "evicted"
	EventPinned     EventKind = "pinned"
	EventCleared    EventKind = "cleared"
	EventCommitted  EventKind = "committed"
	EventRolledBack EventKind = "rolled_back"
)

// Event is a change notification. ItemID and Title are empty for events
// that concern the whole history.
type Event struct {
	Kind   EventKind `json:"kind"`
	ItemID string    `json:"item_id,omitempty"`
	Title  string    `json:"title,omitempty"`
	Pin    string    `json:"pin,omitempty"`
}

// Subscribe returns a channel of change events and a function that cancels
// the subscription and closes the channel. Events are delivered without
// blocking the Store; a subscriber that falls behind loses events.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.subMu.Unlock()
	}
}

func (s *Store) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		for _, ev := range events {
			select {
			case ch <- ev:
			default:
				slog.Warn("history subscriber full, dropping event", "subscriber", id, "kind", ev.Kind)
			}
		}
	}
}
