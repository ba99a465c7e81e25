package cmd

import (
	"github.com/spf13/cobra"
)

var attachCmd = &cobra.Command{
	Use:   "attach <alias> <user@host> [port]",
	Short: "Take over the terminal and attach interactively",
	Long: `Hands the local terminal directly to the remote session. The session
is created first if it does not exist. Detach with the usual tmux
binding (Ctrl-b d); the session keeps running afterwards.

This command produces no JSON output.

Example:
  sessh attach build me@server.example.com`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runAttach,
}

func init() {
	rootCmd.AddCommand(attachCmd)
}

func runAttach(cmd *cobra.Command, args []string) error {
	inv, err := setup()
	if err != nil {
		return err
	}
	alias, target, err := inv.parseTarget(args)
	if err != nil {
		return err
	}

	return inv.dispatcher.Attach(cmd.Context(), alias, target)
}
