package grpcservice

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"go.klb.dev/stash/internal/capture"
	"go.klb.dev/stash/internal/clip"
	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/history"
	"go.klb.dev/stash/internal/storage/memory"
)

type fixture struct {
	svc    *Service
	store  *history.Store
	cb     *clip.Memory
	client *Client
}

func setup(t *testing.T, texts ...string) *fixture {
	t.Helper()

	store := history.New(memory.New(), history.Config{Size: 50})
	cb := clip.NewMemory()
	c, err := capture.New(store, cb, capture.Config{})
	if err != nil {
		t.Fatal(err)
	}
	// Oldest first so that texts[len-1] ends up at index 1.
	for _, s := range texts {
		store.Add(content.Snapshot{Contents: []content.Content{{Type: content.TypeText, Value: []byte(s)}}})
	}
	if err := store.Commit(context.Background()); err != nil {
		t.Fatal(err)
	}

	svc := New(c, Info{Version: "test", Storage: "memory", Size: 50})

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, svc)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &fixture{svc: svc, store: store, cb: cb, client: NewClient(conn)}
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := status.Code(err); got != code {
		t.Fatalf("expected %s, got %s (%v)", code, got, err)
	}
}

func TestList(t *testing.T) {
	f := setup(t, "apricot", "banana", "apple")
	ctx := context.Background()

	resp, err := f.client.List(ctx, &ListRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 3 || resp.Items[0].Title != "apple" || resp.Items[0].Index != 1 || resp.Items[0].Hotkey != "1" {
		t.Fatalf("unexpected list: %+v", resp.Items)
	}
	if len(resp.Items[0].Types) != 1 || resp.Items[0].Types[0] != string(content.TypeText) {
		t.Fatalf("unexpected types: %v", resp.Items[0].Types)
	}

	resp, err = f.client.List(ctx, &ListRequest{Query: "AP"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("expected 2 matches, got %+v", resp.Items)
	}
	// apricot keeps its position in the full list but takes the second hotkey.
	if resp.Items[1].Title != "apricot" || resp.Items[1].Index != 3 || resp.Items[1].Hotkey != "2" {
		t.Fatalf("unexpected match: %+v", resp.Items[1])
	}

	resp, err = f.client.List(ctx, &ListRequest{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 {
		t.Fatalf("expected limit to apply, got %d items", len(resp.Items))
	}
}

func TestSearch(t *testing.T) {
	f := setup(t, "go", "a go b", "go home", "rust")
	ctx := context.Background()

	resp, err := f.client.Search(ctx, &SearchRequest{Query: "go"})
	if err != nil {
		t.Fatal(err)
	}
	// Titles carry the visible space glyph.
	var titles []string
	for _, it := range resp.Items {
		titles = append(titles, it.Title)
	}
	if len(titles) != 3 || titles[0] != "go" || titles[1] != "go·home" || titles[2] != "a·go·b" {
		t.Fatalf("unexpected ranking: %v", titles)
	}
	// Indexes point back into the full list: "go" was copied first.
	if resp.Items[0].Index != 4 || resp.Items[1].Index != 2 || resp.Items[2].Index != 3 {
		t.Fatalf("unexpected indexes: %+v", resp.Items)
	}

	_, err = f.client.Search(ctx, &SearchRequest{})
	wantCode(t, err, codes.InvalidArgument)
}

func TestSelect(t *testing.T) {
	f := setup(t, "foo", "bar")
	ctx := context.Background()

	resp, err := f.client.Select(ctx, &SelectRequest{Index: 2})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Item.Title != "foo" || resp.Pasted {
		t.Fatalf("unexpected response: %+v", resp)
	}
	snap, _ := f.cb.Read()
	if string(snap.Contents[0].Value) != "foo" {
		t.Fatalf("clipboard holds %q", snap.Contents[0].Value)
	}

	resp, err = f.client.Select(ctx, &SelectRequest{ID: resp.Item.ID, Alt: true})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Pasted || f.cb.Pastes() != 1 {
		t.Fatalf("expected alt selection to paste: %+v", resp)
	}
}

func TestSelect_Errors(t *testing.T) {
	f := setup(t, "foo")
	ctx := context.Background()

	_, err := f.client.Select(ctx, &SelectRequest{})
	wantCode(t, err, codes.InvalidArgument)

	_, err = f.client.Select(ctx, &SelectRequest{Index: 5})
	wantCode(t, err, codes.NotFound)

	_, err = f.client.Select(ctx, &SelectRequest{Pin: "z"})
	wantCode(t, err, codes.NotFound)
}

func TestPin(t *testing.T) {
	f := setup(t, "foo", "bar")
	ctx := context.Background()
	all := f.store.All()

	resp, err := f.client.Pin(ctx, &PinRequest{ID: all[1].ID, Pin: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Item.Pin != "f" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	sel, err := f.client.Select(ctx, &SelectRequest{Pin: "f"})
	if err != nil {
		t.Fatal(err)
	}
	if sel.Item.Title != "foo" {
		t.Fatalf("select by pin returned %q", sel.Item.Title)
	}

	// Unpin.
	if _, err := f.client.Pin(ctx, &PinRequest{ID: all[1].ID}); err != nil {
		t.Fatal(err)
	}
	if it, _ := f.store.Get(all[1].ID); it.Pin != "" {
		t.Fatalf("expected unpinned, got %q", it.Pin)
	}
}

func TestPin_Rejected(t *testing.T) {
	f := setup(t, "foo", "bar")
	ctx := context.Background()
	all := f.store.All()

	if _, err := f.client.Pin(ctx, &PinRequest{ID: all[0].ID, Pin: "a"}); err != nil {
		t.Fatal(err)
	}

	_, err := f.client.Pin(ctx, &PinRequest{ID: all[1].ID, Pin: "a"})
	wantCode(t, err, codes.FailedPrecondition)

	_, err = f.client.Pin(ctx, &PinRequest{ID: all[1].ID, Pin: "1"})
	wantCode(t, err, codes.FailedPrecondition)

	if it, _ := f.store.Get(all[1].ID); it.Pin != "" {
		t.Fatalf("rejected pin must not stick, got %q", it.Pin)
	}
	if it, _ := f.store.Get(all[0].ID); it.Pin != "a" {
		t.Fatalf("existing pin must survive, got %q", it.Pin)
	}

	_, err = f.client.Pin(ctx, &PinRequest{ID: "missing", Pin: "b"})
	wantCode(t, err, codes.NotFound)
}

func TestDeleteAndClear(t *testing.T) {
	f := setup(t, "a", "b", "c")
	ctx := context.Background()
	all := f.store.All()

	if _, err := f.client.Delete(ctx, &DeleteRequest{ID: all[0].ID}); err != nil {
		t.Fatal(err)
	}
	_, err := f.client.Delete(ctx, &DeleteRequest{ID: all[0].ID})
	wantCode(t, err, codes.NotFound)

	if _, err := f.client.Pin(ctx, &PinRequest{ID: all[1].ID, Pin: "b"}); err != nil {
		t.Fatal(err)
	}
	resp, err := f.client.Clear(ctx, &ClearRequest{KeepPinned: true})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Removed != 1 || f.store.Len() != 1 {
		t.Fatalf("removed=%d len=%d", resp.Removed, f.store.Len())
	}

	resp, err = f.client.Clear(ctx, &ClearRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Removed != 1 || f.store.Len() != 0 {
		t.Fatalf("removed=%d len=%d", resp.Removed, f.store.Len())
	}
}

func TestStatus(t *testing.T) {
	f := setup(t, "a", "b")
	resp, err := f.client.Status(context.Background(), &StatusRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Version != "test" || resp.Items != 2 || resp.Pinned != 0 || resp.Backend != f.cb.Name() {
		t.Fatalf("unexpected status: %+v", resp)
	}
}

func TestWatch(t *testing.T) {
	f := setup(t, "foo")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := f.client.Watch(ctx, &WatchRequest{})
	if err != nil {
		t.Fatal(err)
	}

	// The subscription is set up by the handler; retry the mutation until
	// the first event arrives.
	got := make(chan *WatchEvent, 1)
	go func() {
		for {
			ev, err := stream.Recv()
			if err != nil {
				return
			}
			if ev.Kind == string(history.EventPinned) {
				got <- ev
				return
			}
		}
	}()

	id := f.store.All()[0].ID
	for {
		if _, err := f.client.Pin(ctx, &PinRequest{ID: id, Pin: "w"}); err != nil {
			t.Fatal(err)
		}
		select {
		case ev := <-got:
			if ev.ItemID != id || ev.Pin != "w" {
				t.Fatalf("unexpected event: %+v", ev)
			}
			return
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no watch event received")
		}
	}
}

func TestHTTPHandler(t *testing.T) {
	f := setup(t, "foo", "bar")
	mux, err := f.svc.HTTPHandler()
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := http.Get(srv.URL + "/v1/items?q=fo")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var list ListResponse
	if err := json.NewDecoder(res.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].Title != "foo" {
		t.Fatalf("unexpected items: %+v", list.Items)
	}

	res2, err := http.Get(srv.URL + "/v1/items?ranked=1")
	if err != nil {
		t.Fatal(err)
	}
	res2.Body.Close()
	if res2.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for ranked search without query, got %d", res2.StatusCode)
	}

	res3, err := http.Get(srv.URL + "/v1/status")
	if err != nil {
		t.Fatal(err)
	}
	defer res3.Body.Close()
	var st StatusResponse
	if err := json.NewDecoder(res3.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.Items != 2 || st.Version != "test" {
		t.Fatalf("unexpected status: %+v", st)
	}
}
