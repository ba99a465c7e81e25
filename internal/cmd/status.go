package cmd

import (
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <alias> <user@host> [port]",
	Short: "Report channel and session liveness",
	Long: `Reports whether the control channel (master) and the remote session
are alive, as 0|1 flags. Status never creates anything: an alias that
was closed or never opened reports both flags down.

Example:
  sessh status build me@server.example.com`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	inv, err := setup()
	if err != nil {
		return err
	}
	alias, _, err := inv.parseTarget(args)
	if err != nil {
		return err
	}

	result, err := inv.dispatcher.Status(cmd.Context(), alias)
	if err != nil {
		return err
	}
	return inv.emit(result, func() {
		PrintSuccess("master: %d\nsession: %d", result.Master, result.Session)
	})
}
