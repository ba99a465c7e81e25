package cmd

import (
	"github.com/spf13/cobra"
)

var closeCmd = &cobra.Command{
	Use:   "close <alias> <user@host> [port]",
	Short: "Kill the session and close the connection",
	Long: `Terminates the remote session and tears down the control channel.
Closing an alias with nothing live is a successful no-op.

Example:
  sessh close build me@server.example.com`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runClose,
}

func init() {
	rootCmd.AddCommand(closeCmd)
}

func runClose(cmd *cobra.Command, args []string) error {
	inv, err := setup()
	if err != nil {
		return err
	}
	alias, _, err := inv.parseTarget(args)
	if err != nil {
		return err
	}

	result, err := inv.dispatcher.Close(cmd.Context(), alias)
	if err != nil {
		return err
	}
	return inv.emit(result, func() {
		PrintSuccess("session %s closed", alias)
	})
}
