package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.klb.dev/stash/internal/grpcservice"
	"go.klb.dev/stash/internal/ipc"
)

const rpcTimeout = 5 * time.Second

// dialDaemon returns a client connected to the daemon's IPC socket.
// The socket is local and owner-restricted, so there is no auth.
func dialDaemon() (*grpcservice.Client, func(), error) {
	if !ipc.IsRunning() {
		return nil, nil, fmt.Errorf("stash daemon is not running (no socket at %s)", ipc.SocketPath())
	}
	conn, err := grpc.NewClient(
		"passthrough:///stash",
		grpc.WithContextDialer(ipc.Dial),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpcservice.CallOptions()...),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("dial: %w", err)
	}
	return grpcservice.NewClient(conn), func() { _ = conn.Close() }, nil
}

// withClient dials the daemon and runs fn with a bounded context.
func withClient(fn func(ctx context.Context, c *grpcservice.Client) error) error {
	c, closeConn, err := dialDaemon()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()
	return fn(ctx, c)
}

// resolveID turns a list index ("3") into an item ID. Anything that is not
// a positive number is taken to be an ID already.
func resolveID(ctx context.Context, c *grpcservice.Client, arg string) (string, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return arg, nil
	}
	resp, err := c.List(ctx, &grpcservice.ListRequest{})
	if err != nil {
		return "", fmt.Errorf("list: %w", err)
	}
	for _, it := range resp.Items {
		if it.Index == n {
			return it.ID, nil
		}
	}
	return "", fmt.Errorf("no item at index %d", n)
}

func fmtAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	age := time.Since(t).Round(time.Second)
	if age < time.Minute {
		return fmt.Sprintf("%ds ago", int(age.Seconds()))
	}
	if age < time.Hour {
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	}
	if age < 24*time.Hour {
		return t.Format("15:04:05")
	}
	return t.Format("2006-01-02")
}
