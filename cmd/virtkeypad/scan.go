package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/virtkeypad/internal/discovery"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/ui"
)

// Scan command flags
var (
	scanTimeout int
	scanSave    bool
	scanFormat  string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (default from config, 5)")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "Add or refresh the mounts found in the registry")
	scanCmd.Flags().StringVar(&scanFormat, "format", "table", "Output format (table, json)")
}

// scanCmd discovers mounts on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for mounts on the network",
	Long: `Scan for mounts using mDNS/DNS-SD discovery.

Every HTTP service whose name looks like a 10micron mount, or that carries a
"keypad" TXT record, is listed with the address of its keypad endpoint.
Simulated mounts started with 'virtkeypad-sim serve --advertise' show up
here too.`,
	Example: `  # Scan for 5 seconds (default)
  virtkeypad scan

  # Longer scan, remembering what was found
  virtkeypad scan --timeout 15 --save

  # JSON output for scripting
  virtkeypad scan --format json`,
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := initLogging(registry.Preferences, false); err != nil {
		return err
	}
	defer logging.Sync()

	timeout := time.Duration(registry.Preferences.DiscoverTimeout) * time.Second
	if scanTimeout > 0 {
		timeout = time.Duration(scanTimeout) * time.Second
	}

	out := cmd.OutOrStdout()
	printer := ui.NewPrinter(out)
	if scanFormat != "json" {
		printer.Println(fmt.Sprintf("Scanning for mounts (timeout: %s)...", timeout))
		printer.Newline()
	}

	mounts, err := discovery.ScanForMounts(context.Background(), timeout)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if scanSave {
		for _, m := range mounts {
			registry.UpdateMountLastSeen(m.Instance, m.IP, m.Port, "mdns")
		}
		if len(mounts) > 0 {
			if err := saveRegistry(registry); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
		}
	}

	if scanFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(mounts)
	}

	if len(mounts) == 0 {
		printer.PrintWarning("No mounts found", nil)
		printer.PrintLines(
			"Troubleshooting:",
			"  - Ensure the mount is powered on and on the same network",
			"  - Multicast traffic may be blocked by the router or a firewall",
			"  - Try increasing --timeout for slower networks",
			"  - Use --mount <ip> to connect without discovery",
		)
		return nil
	}

	rows := make([][]string, 0, len(mounts))
	for _, m := range mounts {
		rows = append(rows, []string{m.Instance, m.IP, strconv.Itoa(m.Port), m.Hostname})
	}
	printer.Println(fmt.Sprintf("Found %d mount(s):", len(mounts)))
	printer.Newline()
	printer.PrintTable([]string{"NAME", "IP", "PORT", "HOSTNAME"}, rows)
	printer.Newline()

	if scanSave {
		printer.Println("Saved to the registry. Use 'virtkeypad mounts list' to review.")
	} else {
		printer.Println("Use 'virtkeypad connect <ip>' to open the keypad, or rerun with --save")
	}
	return nil
}
