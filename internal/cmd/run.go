package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sessh/sessh/internal/protocol"
)

var runCmd = &cobra.Command{
	Use:   "run <alias> <user@host> [port] -- <command>",
	Short: "Run a command inside the session and wait for it",
	Long: `Types the command into the persistent session and waits until it
finishes, reporting its output and exit status. State changes such as
cd or exported variables persist into the next run.

A command that outlives the wait budget is left running on the remote
side; logs and status can be used to observe it afterwards.

Example:
  sessh run build me@server.example.com -- make -j4
  sessh run build me@server.example.com 2222 -- "cd /srv && ./deploy.sh"`,
	Args: func(cmd *cobra.Command, args []string) error {
		dash := cmd.ArgsLenAtDash()
		if dash < 0 || dash == len(args) {
			return fmt.Errorf("a command is required after --")
		}
		if dash < 2 || dash > 3 {
			return fmt.Errorf("expected <alias> <user@host> [port] before --")
		}
		return nil
	},
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	dash := cmd.ArgsLenAtDash()
	command := strings.Join(args[dash:], " ")

	inv, err := setup()
	if err != nil {
		return err
	}
	alias, target, err := inv.parseTarget(args[:dash])
	if err != nil {
		return err
	}

	result, err := inv.dispatcher.Run(cmd.Context(), alias, target, command)
	if err != nil {
		// A timeout or an unparseable completion still carries a structured
		// result; hard failures do not.
		var timeoutErr *protocol.TimeoutError
		var parseErr *protocol.ParseError
		if errors.As(err, &timeoutErr) || errors.As(err, &parseErr) {
			if emitErr := inv.emit(result, func() {}); emitErr != nil {
				return emitErr
			}
		}
		return err
	}

	return inv.emit(result, func() {
		if result.Output != "" {
			fmt.Println(result.Output)
		}
		PrintInfo("exit code: %d", *result.ExitCode)
	})
}
