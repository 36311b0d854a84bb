// stash: clipboard history daemon and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.klb.dev/stash/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "stash",
		Short: "Clipboard history",
		Long: `stash records everything you copy, keeps the most recent entries
(pinned ones forever) and lets you search, re-select and pin them.

Run "stash daemon" once per login session. The other sub-commands talk to
the daemon over a local socket.

Config file search order (first found wins):
  /etc/stash/stash.toml
  $HOME/.config/stash/stash.toml
  path supplied via --config

All flags can be set via STASH_<FLAG> env vars or config-file keys.
See "stash daemon --help" for the full flag reference.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newDaemonCmd(),
		newListCmd(),
		newSearchCmd(),
		newSelectCmd(),
		newPinCmd(),
		newUnpinCmd(),
		newDeleteCmd(),
		newClearCmd(),
		newWatchCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("stash %s\n", Version)
		},
	}
}

// resolveLogging sets up the global slog logger after flags are parsed.
func resolveLogging(interactive bool, formatStr, levelStr string) {
	format := logging.ParseFormat(formatStr)
	level := logging.ParseLevel(levelStr)
	if levelStr == "" {
		if interactive {
			level = logging.ParseLevel("debug")
		} else {
			level = logging.ParseLevel("info")
		}
	}
	logging.Setup(format, level)
}
