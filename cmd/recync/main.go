// Recync is a command line client for Cync-style cloud lighting accounts.
//
// It keeps a persistent connection to the vendor's cloud relay, decodes
// the binary status stream for the account's mesh devices, and issues
// on/off commands. Device discovery runs over the vendor's REST API.
//
// Usage:
//
//	recync [command] [flags]
//
// Running without arguments watches the account's status stream.
// See 'recync --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/recync/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recync",
	Short: "Cync Cloud Relay Client",
	Long: `A command line client for Cync-style cloud lighting accounts.

Connects to the vendor's cloud relay, follows the live status stream of
the account's mesh devices, and sends on/off commands.

If no command is specified, the status stream is watched (same as 'recync watch').`,
	Version: version.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: watch the status stream when no subcommand provided
		return runWatch(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recync %s (commit: %s)\n", version.Version, version.Commit)
	},
}
