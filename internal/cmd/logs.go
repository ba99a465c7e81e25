package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sessh/sessh/internal/validate"
)

var logsCmd = &cobra.Command{
	Use:   "logs <alias> <user@host> [port] [lines]",
	Short: "Capture recent session output",
	Long: `Reads the last lines of the session's scroll-back buffer without
disturbing it. When the session holds fewer lines than requested,
everything available is returned.

The trailing positional is a line count (default 300). When both a
port and a count are given, the port comes first. With --lines set,
a lone trailing positional is the port.

Example:
  sessh logs build me@server.example.com
  sessh logs build me@server.example.com 50
  sessh logs build me@server.example.com 2222 50
  sessh logs build me@server.example.com 2222 --lines 50`,
	Args: cobra.RangeArgs(2, 4),
	RunE: runLogs,
}

var logsLines int

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "Number of lines to capture (default 300)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	inv, err := setup()
	if err != nil {
		return err
	}

	targetArgs, lines, err := resolveLogsArgs(args, logsLines)
	if err != nil {
		return err
	}

	alias, target, err := inv.parseTarget(targetArgs)
	if err != nil {
		return err
	}

	result, err := inv.dispatcher.Logs(cmd.Context(), alias, target, lines)
	if err != nil {
		return err
	}
	return inv.emit(result, func() {
		fmt.Print(result.Output)
		if result.Output != "" && result.Output[len(result.Output)-1] != '\n' {
			fmt.Println()
		}
	})
}

// resolveLogsArgs splits the positionals into target arguments and a line
// count. Without --lines a lone trailing extra is a count; with --lines it is
// a port, and a positional count alongside the flag is rejected rather than
// silently dropped.
func resolveLogsArgs(args []string, flagLines int) (targetArgs []string, lines int, err error) {
	switch len(args) {
	case 3:
		if flagLines > 0 {
			if _, err := validate.Port(args[2]); err != nil {
				return nil, 0, err
			}
			return args, flagLines, nil
		}
		n, err := validate.Lines(args[2])
		if err != nil {
			return nil, 0, err
		}
		return args[:2], n, nil
	case 4:
		if flagLines > 0 {
			return nil, 0, fmt.Errorf("line count given both as positional %q and --lines %d", args[3], flagLines)
		}
		n, err := validate.Lines(args[3])
		if err != nil {
			return nil, 0, err
		}
		return args[:3], n, nil
	default:
		return args, flagLines, nil
	}
}
