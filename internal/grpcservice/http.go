package grpcservice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc/status"
)

// HTTPHandler returns a gateway mux serving a read-only JSON view of the
// history for scripts that don't speak gRPC:
//
//	GET /v1/items?q=&limit=&ranked=1
//	GET /v1/status
func (s *Service) HTTPHandler() (*gwruntime.ServeMux, error) {
	mux := gwruntime.NewServeMux()
	if err := mux.HandlePath(http.MethodGet, "/v1/items", s.handleItems); err != nil {
		return nil, err
	}
	if err := mux.HandlePath(http.MethodGet, "/v1/status", s.handleStatus); err != nil {
		return nil, err
	}
	return mux, nil
}

func (s *Service) handleItems(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))

	var (
		resp *ListResponse
		err  error
	)
	if ranked, _ := strconv.ParseBool(q.Get("ranked")); ranked {
		resp, err = s.Search(r.Context(), &SearchRequest{Query: q.Get("q"), Limit: limit})
	} else {
		resp, err = s.List(r.Context(), &ListRequest{Query: q.Get("q"), Limit: limit})
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	resp, err := s.Status(r.Context(), &StatusRequest{})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http response write failed", "err", err)
	}
}

// writeError maps the gRPC status onto HTTP the way the gateway does for
// generated handlers.
func writeError(w http.ResponseWriter, err error) {
	st := status.Convert(err)
	writeJSON(w, gwruntime.HTTPStatusFromCode(st.Code()), map[string]string{"error": st.Message()})
}
