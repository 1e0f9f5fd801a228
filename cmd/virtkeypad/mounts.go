package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/virtkeypad/internal/ui"
)

var (
	mountPort        int
	mountDescription string
	mountSetDefault  bool
)

func init() {
	rootCmd.AddCommand(mountsCmd)
	mountsCmd.AddCommand(mountsListCmd)
	mountsCmd.AddCommand(mountsAddCmd)
	mountsCmd.AddCommand(mountsRemoveCmd)
	mountsCmd.AddCommand(mountsDefaultCmd)

	mountsAddCmd.Flags().IntVar(&mountPort, "port", 0, "Keypad port (default 8000)")
	mountsAddCmd.Flags().StringVar(&mountDescription, "description", "", "Free text shown by 'mounts list'")
	mountsAddCmd.Flags().BoolVar(&mountSetDefault, "default", false, "Make this the default mount")
}

// mountsCmd manages the mount registry
var mountsCmd = &cobra.Command{
	Use:   "mounts",
	Short: "Manage known mounts",
	Long: `Manage the named mounts kept in the config file.

A named mount can be used wherever a mount is expected, and the default
mount is used when none is given.`,
}

var mountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known mounts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		printer := ui.NewPrinter(cmd.OutOrStdout())
		names := registry.MountNames()
		if len(names) == 0 {
			printer.Println("No mounts configured. Add one with 'virtkeypad mounts add <name> <host>'.")
			return nil
		}

		rows := make([][]string, 0, len(names))
		for _, name := range names {
			m := registry.GetMount(name)
			marker := ""
			if name == registry.Preferences.DefaultMount {
				marker = "*"
			}
			seen := "never"
			if !m.LastSeen.IsZero() {
				seen = m.LastSeen.Local().Format("2006-01-02 15:04")
			}
			rows = append(rows, []string{marker, name, m.Address(), m.Source, seen, m.Description})
		}
		printer.PrintTable([]string{"", "NAME", "ADDRESS", "SOURCE", "LAST SEEN", "DESCRIPTION"}, rows)
		return nil
	},
}

var mountsAddCmd = &cobra.Command{
	Use:   "add <name> <host>",
	Short: "Add or replace a mount",
	Example: `  # Add a mount on the default port
  virtkeypad mounts add observatory 192.168.2.15 --default

  # Add a mount behind a port forward
  virtkeypad mounts add remote gm2000.example.net --port 18000`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}

		m, err := registry.AddMount(args[0], args[1], mountPort)
		if err != nil {
			return err
		}
		m.Description = mountDescription
		if mountSetDefault || len(registry.Mounts) == 1 {
			registry.Preferences.DefaultMount = args[0]
		}
		if err := saveRegistry(registry); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Mount saved", map[string]string{
			"Name":    args[0],
			"Address": m.Address(),
			"Default": strconv.FormatBool(registry.Preferences.DefaultMount == args[0]),
		})
		return nil
	},
}

var mountsRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a mount",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		if !registry.RemoveMount(args[0]) {
			return fmt.Errorf("mount %q not found", args[0])
		}
		if err := saveRegistry(registry); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
		return nil
	},
}

var mountsDefaultCmd = &cobra.Command{
	Use:   "default <name>",
	Short: "Set the default mount",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := loadRegistry()
		if err != nil {
			return err
		}
		if registry.GetMount(args[0]) == nil {
			return fmt.Errorf("mount %q not found", args[0])
		}
		registry.Preferences.DefaultMount = args[0]
		if err := saveRegistry(registry); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default mount is now %s\n", args[0])
		return nil
	},
}
