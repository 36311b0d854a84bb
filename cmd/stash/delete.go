package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/stash/internal/grpcservice"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <index|id>",
		Short: "Delete one history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withClient(func(ctx context.Context, c *grpcservice.Client) error {
				id, err := resolveID(ctx, c, args[0])
				if err != nil {
					return err
				}
				if _, err := c.Delete(ctx, &grpcservice.DeleteRequest{ID: id}); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				return nil
			})
		},
	}
}

func newClearCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the history, keeping pinned items",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withClient(func(ctx context.Context, c *grpcservice.Client) error {
				resp, err := c.Clear(ctx, &grpcservice.ClearRequest{KeepPinned: !all})
				if err != nil {
					return fmt.Errorf("clear: %w", err)
				}
				fmt.Printf("Removed %d item(s).\n", resp.Removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "remove pinned items too")

	return cmd
}
