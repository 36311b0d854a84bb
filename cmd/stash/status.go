package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/stash/internal/grpcservice"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's state",
		Long: `Displays the running daemon's version, clipboard backend, storage and
how full the history is.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStatus(v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func runStatus(v *viper.Viper) error {
	return withClient(func(ctx context.Context, c *grpcservice.Client) error {
		resp, err := c.Status(ctx, &grpcservice.StatusRequest{})
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}

		if v.GetBool("json") {
			enc, _ := json.MarshalIndent(resp, "", "  ")
			fmt.Println(string(enc))
			return nil
		}

		printStatus(resp)
		return nil
	})
}

func printStatus(resp *grpcservice.StatusResponse) {
	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Version:\t%s\n", resp.Version)
	_, _ = fmt.Fprintf(w, "Clipboard:\t%s\n", resp.Backend)
	_, _ = fmt.Fprintf(w, "Storage:\t%s\n", resp.Storage)
	_, _ = fmt.Fprintf(w, "Socket:\t%s\n", resp.Socket)
	_, _ = fmt.Fprintf(w, "Items:\t%d (%d pinned, %d unpinned of %d)\n",
		resp.Items, resp.Pinned, resp.Items-resp.Pinned, resp.Size)
	if !resp.StartedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "Started:\t%s (%s)\n", resp.StartedAt.UTC().Format(time.RFC3339), fmtAge(resp.StartedAt))
	}
	_ = w.Flush()
}
