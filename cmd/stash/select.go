package main

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"go.klb.dev/stash/internal/grpcservice"
)

func newSelectCmd() *cobra.Command {
	var (
		pin string
		alt bool
	)

	cmd := &cobra.Command{
		Use:   "select [index|id]",
		Short: "Put a history item back on the clipboard",
		Long: `Copies the item at the given list index (or with the given ID, or
pinned to --pin) to the clipboard, making it the most recent item.

If the daemon runs with --paste the item is also pasted into the focused
application; --alt inverts that for one selection.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if pin == "" {
				return cobra.ExactArgs(1)(cmd, args)
			}
			return cobra.NoArgs(cmd, args)
		},
		RunE: func(_ *cobra.Command, args []string) error {
			req := &grpcservice.SelectRequest{Pin: pin, Alt: alt}
			if len(args) == 1 {
				if n, err := strconv.Atoi(args[0]); err == nil {
					req.Index = n
				} else {
					req.ID = args[0]
				}
			}
			return withClient(func(ctx context.Context, c *grpcservice.Client) error {
				resp, err := c.Select(ctx, req)
				if err != nil {
					return fmt.Errorf("select: %w", err)
				}
				if resp.Warning != "" {
					slog.Warn(resp.Warning)
				}
				verb := "Copied"
				if resp.Pasted {
					verb = "Pasted"
				}
				fmt.Printf("%s: %s\n", verb, resp.Item.Title)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&pin, "pin", "", "select the item pinned to this letter")
	f.BoolVar(&alt, "alt", false, "invert the daemon's paste-by-default setting")

	return cmd
}
