package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/soheilhy/cmux"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"go.klb.dev/stash/internal/capture"
	"go.klb.dev/stash/internal/clip"
	"go.klb.dev/stash/internal/content"
	"go.klb.dev/stash/internal/grpcservice"
	"go.klb.dev/stash/internal/history"
	"go.klb.dev/stash/internal/ipc"
	"go.klb.dev/stash/internal/search"
	"go.klb.dev/stash/internal/storage/bolt"
	"go.klb.dev/stash/internal/storage/memory"
	"go.klb.dev/stash/internal/storage/sqlite"
)

func newDaemonCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Record clipboard history and serve it to the CLI",
		Long: `Watches the system clipboard and records every copy in the history.
The history is persisted after each change and reloaded on start.

CLI sub-commands reach the daemon over a local socket ($STASH_SOCKET, or
stash.sock in $XDG_RUNTIME_DIR / $TMPDIR). The same socket answers plain
HTTP:

  curl --unix-socket "$XDG_RUNTIME_DIR/stash.sock" 'http://stash/v1/items?q=foo'

Config file search order:
  /etc/stash/stash.toml
  $HOME/.config/stash/stash.toml
  path supplied via --config

Precedence (lowest → highest): defaults → config file → STASH_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runDaemon(v) },
	}

	f := cmd.Flags()
	f.Int("size", history.DefaultSize, "number of unpinned items to keep")
	f.Int("title-length", content.DefaultMaxTitleLength, "maximum title length in characters")
	f.Int("hotkeys", search.DefaultMaxHotkeys, "number of rows that get a 1-9 shortcut in list output")
	f.String("pin-position", string(history.PinNone), "where pinned items are listed: none|top|bottom")
	f.String("storage", "sqlite", "history storage: sqlite|bolt|memory")
	f.String("db", "", "database path (default: $XDG_DATA_HOME/stash/history.<storage>)")
	f.StringSlice("ignore", nil, "skip copies whose text contains any of these (case-insensitive)")
	f.Bool("ignore-regex", false, "treat --ignore patterns as regular expressions")
	f.StringSlice("ignore-apps", nil, "skip copies made by these applications")
	f.Bool("paste", false, "paste on select by default (--alt then only copies)")
	f.Bool("clear-on-quit", false, "clear the history when the daemon stops")
	f.Bool("keep-pinned", true, "keep pinned items when clearing on quit")
	addLoggingFlags(cmd)
	addConfigFlag(cmd)

	return cmd
}

func runDaemon(v *viper.Viper) error {
	setupLogging(v)

	kind := v.GetString("storage")
	dbPath := v.GetString("db")
	if dbPath == "" && kind != "memory" {
		var err error
		if dbPath, err = defaultDBPath(kind); err != nil {
			return err
		}
	}

	slog.Info("stash daemon starting",
		"version", Version,
		"storage", kind,
		"db", dbPath,
		"size", v.GetInt("size"),
	)

	repo, err := openRepository(kind, dbPath)
	if err != nil {
		return err
	}

	store := history.New(repo, history.Config{
		Size:        v.GetInt("size"),
		PinPosition: history.ParsePinPosition(v.GetString("pin-position")),
		Resolver:    content.Options{MaxTitleLength: v.GetInt("title-length")},
	})
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("closing storage failed", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.Load(ctx); err != nil {
		return err
	}
	slog.Info("history loaded", "items", store.Len())

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	cs, err := capture.New(store, backend, capture.Config{
		IgnorePatterns: v.GetStringSlice("ignore"),
		IgnoreRegex:    v.GetBool("ignore-regex"),
		IgnoredApps:    v.GetStringSlice("ignore-apps"),
		PasteByDefault: v.GetBool("paste"),
	})
	if err != nil {
		return err
	}

	ln, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("ipc socket: %w", err)
	}
	slog.Info("IPC socket listening", "path", ipc.SocketPath())

	svc := grpcservice.New(cs, grpcservice.Info{
		Version: Version,
		Storage: kind,
		Socket:  ipc.SocketPath(),
		Size:    v.GetInt("size"),
		Hotkeys: v.GetInt("hotkeys"),
	})
	shutdown, err := serveIPC(ln, svc)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer shutdown()

	if err := cs.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("stash daemon stopping")

	if v.GetBool("clear-on-quit") {
		clearOnQuit(cs, v.GetBool("keep-pinned"))
	}
	return nil
}

// serveIPC serves gRPC and HTTP/1.1 on ln, split by cmux. The returned
// function stops both servers.
func serveIPC(ln net.Listener, svc *grpcservice.Service) (func(), error) {
	gwMux, err := svc.HTTPHandler()
	if err != nil {
		return nil, fmt.Errorf("http gateway: %w", err)
	}

	m := cmux.New(ln)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldPrefixSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.HTTP1Fast())

	gs := grpc.NewServer()
	grpcservice.Register(gs, svc)

	go func() {
		if err := gs.Serve(grpcL); err != nil && !errors.Is(err, cmux.ErrListenerClosed) {
			slog.Error("grpc server stopped", "err", err)
		}
	}()
	hs := serveHTTPGateway(httpL, gwMux)
	go func() {
		if err := m.Serve(); err != nil && !errors.Is(err, net.ErrClosed) {
			slog.Debug("ipc mux stopped", "err", err)
		}
	}()

	return func() {
		gs.Stop()
		_ = hs.Close()
		_ = ln.Close()
	}, nil
}

func clearOnQuit(cs *capture.Service, keepPinned bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := cs.Apply(ctx, func(h *history.Store) error {
		h.Clear(keepPinned)
		return nil
	})
	if err != nil {
		slog.Error("clear on quit failed", "err", err)
		return
	}
	slog.Info("history cleared on quit", "keep_pinned", keepPinned)
}

func openRepository(kind, path string) (history.Repository, error) {
	switch kind {
	case "memory":
		return memory.New(), nil
	case "bolt":
		return bolt.Open(path)
	case "sqlite":
		return sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unknown storage %q (want sqlite, bolt or memory)", kind)
	}
}

// defaultDBPath returns $XDG_DATA_HOME/stash/history.<kind>, falling back to
// ~/.local/share, and creates the directory.
func defaultDBPath(kind string) (string, error) {
	dir := os.Getenv("XDG_DATA_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locating data dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share")
	}
	dir = filepath.Join(dir, "stash")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	ext := "db"
	if kind == "bolt" {
		ext = "bolt"
	}
	return filepath.Join(dir, "history."+ext), nil
}
