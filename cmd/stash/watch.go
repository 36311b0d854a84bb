package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"go.klb.dev/stash/internal/grpcservice"
)

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print history changes as they happen",
		Long: `Streams every change the daemon makes to the history (new copies,
promotions, pins, deletions, evictions) until interrupted.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runWatch(v.GetBool("json")) },
	}

	cmd.Flags().Bool("json", false, "output one JSON object per event")
	addConfigFlag(cmd)

	return cmd
}

func runWatch(jsonOut bool) error {
	c, closeConn, err := dialDaemon()
	if err != nil {
		return err
	}
	defer closeConn()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stream, err := c.Watch(ctx, &grpcservice.WatchRequest{})
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	for {
		ev, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
		if jsonOut {
			if err := enc.Encode(ev); err != nil {
				return err
			}
			continue
		}
		line := fmt.Sprintf("%s  %-9s %s", time.Now().Format("15:04:05"), ev.Kind, ev.Title)
		if ev.Pin != "" {
			line += fmt.Sprintf(" [%s]", ev.Pin)
		}
		fmt.Println(line)
	}
}
