// Package ipc provides the local socket that the stash daemon serves its
// History API on and that CLI sub-commands dial.
//
// gRPC and plain HTTP/1.1 share the socket; the daemon splits them with
// cmux. Access control is left to the OS: the socket lives in a per-user
// runtime directory and is created mode 0600.
package ipc

import (
	"context"
	"errors"
	"net"
	"os"
	"time"
)

// ErrInUse is returned by Listen when another daemon owns the socket.
var ErrInUse = errors.New("socket in use by a running daemon")

// SocketPath returns the platform-appropriate path for the IPC socket.
//
//   - Linux:   $XDG_RUNTIME_DIR/stash.sock, else $TMPDIR/stash.sock
//   - macOS:   $TMPDIR/stash.sock
//   - Windows: \\.\pipe\stash (named pipe)
//
// $STASH_SOCKET overrides all of the above.
func SocketPath() string {
	if s := os.Getenv("STASH_SOCKET"); s != "" {
		return s
	}
	return socketPath()
}

// IsRunning reports whether a stash daemon appears to be listening on the
// IPC socket. It does a cheap dial-and-close; no data is exchanged.
func IsRunning() bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	c, err := dialIPC(ctx, SocketPath())
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates and returns a net.Listener on the IPC socket path.
func Listen() (net.Listener, error) {
	return listenIPC(SocketPath())
}

// Dial connects to the IPC socket. Its signature matches
// grpc.WithContextDialer; the address argument is ignored.
func Dial(ctx context.Context, _ string) (net.Conn, error) {
	return dialIPC(ctx, SocketPath())
}
