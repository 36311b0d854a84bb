package grpcservice

import (
	"time"

	"go.klb.dev/stash/internal/history"
)

// Item is the wire form of a history item. Index is its 1-based position
// in the full history list and stays valid for SelectRequest.Index.
type Item struct {
	Index          int       `json:"index"`
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Pin            string    `json:"pin,omitempty"`
	Hotkey         string    `json:"hotkey,omitempty"`
	Types          []string  `json:"types"`
	Image          bool      `json:"image,omitempty"`
	Application    string    `json:"application,omitempty"`
	NumberOfCopies int       `json:"number_of_copies"`
	FirstCopiedAt  time.Time `json:"first_copied_at"`
	LastCopiedAt   time.Time `json:"last_copied_at"`
}

type ListRequest struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

type ListResponse struct {
	Items []Item `json:"items"`
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// SelectRequest names exactly one of Index, ID or Pin.
type SelectRequest struct {
	Index int    `json:"index,omitempty"`
	ID    string `json:"id,omitempty"`
	Pin   string `json:"pin,omitempty"`

	// Alt inverts the paste-by-default setting for this selection.
	Alt bool `json:"alt,omitempty"`
}

type SelectResponse struct {
	Item    Item   `json:"item"`
	Pasted  bool   `json:"pasted"`
	Warning string `json:"warning,omitempty"`
}

// PinRequest sets the pin of ID. An empty Pin unpins.
type PinRequest struct {
	ID  string `json:"id"`
	Pin string `json:"pin"`
}

type PinResponse struct {
	Item Item `json:"item"`
}

type DeleteRequest struct {
	ID string `json:"id"`
}

type DeleteResponse struct{}

type ClearRequest struct {
	KeepPinned bool `json:"keep_pinned"`
}

type ClearResponse struct {
	Removed int `json:"removed"`
}

type StatusRequest struct{}

type StatusResponse struct {
	Version   string    `json:"version"`
	Backend   string    `json:"backend"`
	Storage   string    `json:"storage"`
	Socket    string    `json:"socket,omitempty"`
	Items     int       `json:"items"`
	Pinned    int       `json:"pinned"`
	Size      int       `json:"size"`
	StartedAt time.Time `json:"started_at"`
}

type WatchRequest struct{}

type WatchEvent struct {
	Kind   string `json:"kind"`
	ItemID string `json:"item_id,omitempty"`
	Title  string `json:"title,omitempty"`
	Pin    string `json:"pin,omitempty"`
}

func toItem(index int, hotkey string, it *history.Item) Item {
	types := make([]string, len(it.Contents))
	for i, c := range it.Contents {
		types[i] = string(c.Type)
	}
	return Item{
		Index:          index,
		ID:             it.ID,
		Title:          it.Title,
		Pin:            it.Pin,
		Hotkey:         hotkey,
		Types:          types,
		Image:          it.Image != nil,
		Application:    it.Application,
		NumberOfCopies: it.NumberOfCopies,
		FirstCopiedAt:  it.FirstCopiedAt,
		LastCopiedAt:   it.LastCopiedAt,
	}
}
