package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"go.klb.dev/stash/internal/grpcservice"
)

func newPinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin <index|id> <letter>",
		Short: "Pin a history item to a letter",
		Long: `Pins an item so that it is never evicted and can be selected with
"stash select --pin <letter>". The letter must be a-z and not already in
use; otherwise the history is left unchanged.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return setPin(args[0], args[1])
		},
	}
}

func newUnpinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <index|id>",
		Short: "Remove the pin from a history item",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return setPin(args[0], "")
		},
	}
}

func setPin(target, pin string) error {
	return withClient(func(ctx context.Context, c *grpcservice.Client) error {
		id, err := resolveID(ctx, c, target)
		if err != nil {
			return err
		}
		resp, err := c.Pin(ctx, &grpcservice.PinRequest{ID: id, Pin: pin})
		if err != nil {
			return fmt.Errorf("pin: %w", err)
		}
		if pin == "" {
			fmt.Printf("Unpinned: %s\n", resp.Item.Title)
		} else {
			fmt.Printf("Pinned to %s: %s\n", pin, resp.Item.Title)
		}
		return nil
	})
}
