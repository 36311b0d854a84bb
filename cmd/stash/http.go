package main

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/soheilhy/cmux"
)

// serveHTTPGateway runs an HTTP/1.1 server on ln serving the grpc-gateway mux.
// The returned server is already serving; Close stops it.
func serveHTTPGateway(ln net.Listener, mux *gwruntime.ServeMux) *http.Server {
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("http server stopped", "err", err)
		}
	}()
	return srv
}
