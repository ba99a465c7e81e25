package cmd

import (
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <alias> <user@host> [port]",
	Short: "Open (or reuse) a persistent remote session",
	Long: `Establishes the control channel to the host and ensures a detached
session named <alias> exists on the remote side. Opening an alias that
is already open succeeds without changing anything.

Example:
  sessh open build me@server.example.com
  sessh open build me@server.example.com 2222`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	inv, err := setup()
	if err != nil {
		return err
	}
	alias, target, err := inv.parseTarget(args)
	if err != nil {
		return err
	}

	result, err := inv.dispatcher.Open(cmd.Context(), alias, target)
	if err != nil {
		return err
	}
	return inv.emit(result, func() {
		PrintSuccess("session %s open on %s", alias, target.String())
	})
}
