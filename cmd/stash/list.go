package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/stash/internal/grpcservice"
)

func newListCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "list [filter]",
		Short: "List the clipboard history",
		Long: `Lists the history, most recently copied first. With a filter only items
whose title contains it (case-insensitive) are shown; they keep the index
of their position in the full list, so "stash select <index>" still works.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			req := &grpcservice.ListRequest{Limit: v.GetInt("limit")}
			if len(args) == 1 {
				req.Query = args[0]
			}
			return withClient(func(ctx context.Context, c *grpcservice.Client) error {
				resp, err := c.List(ctx, req)
				if err != nil {
					return fmt.Errorf("list: %w", err)
				}
				return printItems(resp.Items, v.GetBool("json"))
			})
		},
	}

	f := cmd.Flags()
	f.Int("limit", 0, "show at most this many items (0 = all)")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func newSearchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the full text of the history, best match first",
		Long: `Ranks items by how well their full text matches: exact matches first,
then prefixes, then earlier substrings. Pinned and recently copied items
are boosted.`,
		Args:    cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE: func(_ *cobra.Command, args []string) error {
			req := &grpcservice.SearchRequest{
				Query: strings.Join(args, " "),
				Limit: v.GetInt("limit"),
			}
			return withClient(func(ctx context.Context, c *grpcservice.Client) error {
				resp, err := c.Search(ctx, req)
				if err != nil {
					return fmt.Errorf("search: %w", err)
				}
				return printItems(resp.Items, v.GetBool("json"))
			})
		},
	}

	f := cmd.Flags()
	f.Int("limit", 20, "show at most this many results (0 = all)")
	f.Bool("json", false, "output raw JSON")
	addConfigFlag(cmd)

	return cmd
}

func printItems(items []grpcservice.Item, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	if len(items) == 0 {
		fmt.Println("No items.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "#\tKEY\tPIN\tTITLE\tCOPIES\tLAST COPIED\n")
	_, _ = fmt.Fprintf(tw, "-\t---\t---\t-----\t------\t-----------\n")
	for _, it := range items {
		title := it.Title
		if it.Image {
			title = "[image] " + title
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n",
			it.Index, dash(it.Hotkey), dash(it.Pin), title, it.NumberOfCopies, fmtAge(it.LastCopiedAt),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
