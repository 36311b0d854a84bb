// Package grpcservice implements the History gRPC service that CLI tools
// use to list, search, select and edit the daemon's clipboard history.
//
// Messages are plain Go structs carried by a JSON codec; there is no
// generated code.
package grpcservice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/stash/internal/capture"
	"go.klb.dev/stash/internal/history"
	"go.klb.dev/stash/internal/search"
)

// Info is static daemon metadata reported by Status.
type Info struct {
	Version string
	Storage string
	Socket  string
	Size    int
	// Hotkeys is the number of "1".."9" shortcuts List hands out.
	Hotkeys int
}

// Service implements HistoryServer.
type Service struct {
	capture   *capture.Service
	store     *history.Store
	info      Info
	startedAt time.Time
}

// New returns a Service that reads from and mutates the history fed by c.
func New(c *capture.Service, info Info) *Service {
	return &Service{
		capture:   c,
		store:     c.Store(),
		info:      info,
		startedAt: time.Now(),
	}
}

// List implements History.List. Rows keep their position in the full list
// so that Index can be passed back to Select.
func (s *Service) List(_ context.Context, req *ListRequest) (*ListResponse, error) {
	all := s.store.All()

	m := search.NewMenu(search.Config{MaxHotkeys: s.info.Hotkeys})
	m.SetItems(all)
	m.Update(req.Query)

	resp := &ListResponse{Items: []Item{}}
	for i, e := range m.Entries() {
		if e.Kind != search.KindItem || !e.Visible {
			continue
		}
		resp.Items = append(resp.Items, toItem(i+1, e.Hotkey, e.Item))
		if req.Limit > 0 && len(resp.Items) == req.Limit {
			break
		}
	}
	return resp, nil
}

// Search implements History.Search: the ranked full-text search.
func (s *Service) Search(_ context.Context, req *SearchRequest) (*ListResponse, error) {
	if req.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}
	all := s.store.All()
	index := make(map[string]int, len(all))
	for i, it := range all {
		index[it.ID] = i + 1
	}

	resp := &ListResponse{Items: []Item{}}
	for _, it := range search.Rank(all, req.Query, search.RankOptions{Limit: req.Limit}) {
		resp.Items = append(resp.Items, toItem(index[it.ID], "", it))
	}
	return resp, nil
}

// Select implements History.Select. A failed paste still leaves the item on
// the clipboard and is reported as a warning.
func (s *Service) Select(_ context.Context, req *SelectRequest) (*SelectResponse, error) {
	it, index, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	resp := &SelectResponse{Item: toItem(index, "", it)}
	resp.Pasted, err = s.capture.Select(it, req.Alt)
	if err != nil {
		if !errors.Is(err, capture.ErrPaste) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		slog.Warn("paste failed", "id", it.ID, "err", err)
		resp.Warning = err.Error()
	}
	return resp, nil
}

// Pin implements History.Pin. Validity and uniqueness are checked when the
// change is committed; a rejected pin leaves the history unchanged.
func (s *Service) Pin(ctx context.Context, req *PinRequest) (*PinResponse, error) {
	if req.ID == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	err := s.capture.Apply(ctx, func(h *history.Store) error {
		if !h.SetPin(req.ID, req.Pin) {
			return status.Errorf(codes.NotFound, "no item %q", req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}

	it, ok := s.store.Get(req.ID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "no item %q", req.ID)
	}
	slog.Info("item pinned", "id", it.ID, "pin", it.Pin)
	return &PinResponse{Item: toItem(s.indexOf(it.ID), "", it)}, nil
}

// Delete implements History.Delete.
func (s *Service) Delete(ctx context.Context, req *DeleteRequest) (*DeleteResponse, error) {
	err := s.capture.Apply(ctx, func(h *history.Store) error {
		if !h.Delete(req.ID) {
			return status.Errorf(codes.NotFound, "no item %q", req.ID)
		}
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Info("item deleted", "id", req.ID)
	return &DeleteResponse{}, nil
}

// Clear implements History.Clear.
func (s *Service) Clear(ctx context.Context, req *ClearRequest) (*ClearResponse, error) {
	var removed int
	err := s.capture.Apply(ctx, func(h *history.Store) error {
		before := h.Len()
		h.Clear(req.KeepPinned)
		removed = before - h.Len()
		return nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	slog.Info("history cleared", "removed", removed, "keep_pinned", req.KeepPinned)
	return &ClearResponse{Removed: removed}, nil
}

// Status implements History.Status.
func (s *Service) Status(_ context.Context, _ *StatusRequest) (*StatusResponse, error) {
	all := s.store.All()
	pinned := 0
	for _, it := range all {
		if it.Pinned() {
			pinned++
		}
	}
	return &StatusResponse{
		Version:   s.info.Version,
		Backend:   s.capture.Backend().Name(),
		Storage:   s.info.Storage,
		Socket:    s.info.Socket,
		Items:     len(all),
		Pinned:    pinned,
		Size:      s.info.Size,
		StartedAt: s.startedAt,
	}, nil
}

// Watch implements History.Watch.
func (s *Service) Watch(_ *WatchRequest, stream WatchServer) error {
	events, cancel := s.store.Subscribe()
	defer cancel()

	slog.Debug("watch started")
	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := stream.Send(&WatchEvent{
				Kind:   string(ev.Kind),
				ItemID: ev.ItemID,
				Title:  ev.Title,
				Pin:    ev.Pin,
			}); err != nil {
				return err
			}
		}
	}
}

func (s *Service) resolve(req *SelectRequest) (*history.Item, int, error) {
	var (
		it *history.Item
		ok bool
	)
	switch {
	case req.Index != 0:
		it, ok = s.store.At(req.Index)
		if !ok {
			return nil, 0, status.Errorf(codes.NotFound, "no item at index %d", req.Index)
		}
		return it, req.Index, nil
	case req.ID != "":
		it, ok = s.store.Get(req.ID)
		if !ok {
			return nil, 0, status.Errorf(codes.NotFound, "no item %q", req.ID)
		}
	case req.Pin != "":
		it, ok = s.store.FindByPin(req.Pin)
		if !ok {
			return nil, 0, status.Errorf(codes.NotFound, "no item pinned to %q", req.Pin)
		}
	default:
		return nil, 0, status.Error(codes.InvalidArgument, "one of index, id or pin is required")
	}
	return it, s.indexOf(it.ID), nil
}

func (s *Service) indexOf(id string) int {
	for i, it := range s.store.All() {
		if it.ID == id {
			return i + 1
		}
	}
	return 0
}

// toStatus maps history errors onto gRPC codes. Errors that already carry
// a status pass through.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var verr *history.ValidationError
	if errors.As(err, &verr) {
		return status.Error(codes.FailedPrecondition, verr.Error())
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

var _ HistoryServer = (*Service)(nil)
