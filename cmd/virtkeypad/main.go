// Virtkeypad is a virtual hand controller for 10micron telescope mounts.
//
// It connects to the keypad WebSocket a mount serves on port 8000, renders
// the keypad display in the terminal and sends button presses back.
// Mounts can be named in a small YAML registry or found with mDNS.
//
// Usage:
//
//	virtkeypad [command] [flags]
//
// Running without arguments opens the keypad for the default mount.
// See 'virtkeypad --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/virtkeypad/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtkeypad",
	Short: "Virtual keypad for 10micron telescope mounts",
	Long: `A terminal hand controller for 10micron telescope mounts.

Connects to the keypad endpoint of a mount, mirrors its 16x5 display and
forwards button presses. The link is reopened automatically when the mount
drops it.

If no command is specified, the keypad opens for the default mount.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default behavior: open the keypad when no subcommand provided
		return runConnect(cmd, args)
	},
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionDetailed bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionDetailed {
			fmt.Printf("virtkeypad %s\n", version.Detailed())
			return
		}
		fmt.Printf("virtkeypad %s (commit: %s)\n", version.Version, version.Commit)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Include Go version and platform")
}
