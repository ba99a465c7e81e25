package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose   bool
	cfgFile   string
	jsonFlag  bool
	identity  string
	proxyJump string
)

var rootCmd = &cobra.Command{
	Use:   "sessh",
	Short: "Persistent remote shell sessions over SSH",
	Long: `Sessh runs sequences of shell commands against a remote host as if in
one continuous interactive shell. A named session keeps its working
directory, environment, and background jobs alive between discrete
invocations; the authenticated connection is reused instead of
re-established per command.

Quick start:
  sessh open build me@server.example.com      # open a session
  sessh run build me@server.example.com -- make -j4
  sessh logs build me@server.example.com      # recent output
  sessh status build me@server.example.com    # liveness flags
  sessh close build me@server.example.com     # tear everything down

Commands:
  open      Open (or reuse) a persistent remote session
  run       Run a command inside the session and wait for it
  logs      Capture recent session output
  status    Report channel and session liveness
  close     Kill the session and close the connection
  attach    Take over the terminal and attach interactively

Environment Variables:
  SESSH_IDENTITY   Path to the SSH private key
  SESSH_PROXYJUMP  Bastion hop (user@host[:port])
  SESSH_JSON       Set to 1 to emit machine-readable JSON results`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		PrintError("%v", err)
	}
	return err
}

// GetRootCmd returns the root command, for documentation generation.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ~/.config/sessh/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit machine-readable JSON results")
	rootCmd.PersistentFlags().StringVarP(&identity, "identity", "i", "", "Path to SSH private key")
	rootCmd.PersistentFlags().StringVarP(&proxyJump, "jump", "J", "", "Bastion hop (user@host[:port])")

	rootCmd.SetVersionTemplate(`sessh {{.Version}}
`)
}

// PrintError prints a formatted error message to stderr
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+msg+"\n", args...)
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	fmt.Printf(msg+"\n", args...)
}

// PrintInfo prints an info message to stderr so stdout stays parseable
func PrintInfo(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
}
