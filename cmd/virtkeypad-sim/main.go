// Virtkeypad-sim is a simulated 10micron mount keypad endpoint.
//
// It serves the keypad WebSocket protocol with a small menu, so the
// virtkeypad client can be tried and tested without a mount. Key frames are
// logged and every session can be captured for analysis.
//
// Usage:
//
//	virtkeypad-sim serve [flags]
//
// See 'virtkeypad-sim serve --help' for available options.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/virtkeypad/internal/discovery"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/simulator"
	"github.com/muurk/virtkeypad/internal/ui"
	"github.com/muurk/virtkeypad/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "virtkeypad-sim",
	Short: "Simulated mount keypad endpoint",
	Long: `A stand-in for the keypad endpoint of a 10micron mount.

Speaks the same framed binary protocol as the mount: it paints a menu on
connect, answers key frames and sends heartbeats while idle.

Note: For the client itself, use the separate 'virtkeypad' utility.`,
	Version: version.Version,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Serve command and flags
var (
	host       string
	port       int
	title      string
	heartbeat  time.Duration
	logLevel   string
	captureDir string
	advertise  string
	dropEvery  time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the simulated mount",
	Long: `Start a simulated mount keypad on the given port.

Each client gets its own menu. Arrows move the selection, ENTER opens an
entry, ESC goes back, MENU returns to the main page and STOP halts tracking.

To capture the traffic of every session, use the --capture-dir flag to
specify a directory where JSONL captures will be written. They can be read
back with 'virtkeypad analyze'.`,
	Example: `  # Start on the mount's port
  virtkeypad-sim serve

  # Announce over mDNS so 'virtkeypad scan' finds it
  virtkeypad-sim serve --advertise "GM1000 Simulator"

  # Drop every client each 30 seconds to exercise reconnects
  virtkeypad-sim serve --drop-every 30s --log-level debug

  # Capture every session
  virtkeypad-sim serve --capture-dir ./captures`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&host, "host", "", "Listen address (empty = all interfaces)")
	serveCmd.Flags().IntVar(&port, "port", simulator.DefaultPort, "Listen port")
	serveCmd.Flags().StringVar(&title, "title", "", "Main menu title")
	serveCmd.Flags().DurationVar(&heartbeat, "heartbeat", simulator.DefaultHeartbeatInterval, "Heartbeat interval (negative disables)")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&captureDir, "capture-dir", "", "Directory to write session captures (disabled if not specified)")
	serveCmd.Flags().StringVar(&advertise, "advertise", "", "Announce this instance name over mDNS")
	serveCmd.Flags().DurationVar(&dropEvery, "drop-every", 0, "Drop all clients at this interval (0 = never)")
}

func runServe(cmd *cobra.Command, args []string) error {
	// Validate capture directory if specified
	if captureDir != "" {
		info, err := os.Stat(captureDir)
		if os.IsNotExist(err) {
			return fmt.Errorf("capture directory does not exist: %s", captureDir)
		}
		if err != nil {
			return fmt.Errorf("cannot access capture directory: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("capture path is not a directory: %s", captureDir)
		}
	}

	if err := logging.Initialize(logLevel); err != nil {
		return err
	}
	defer logging.Sync()

	srv := simulator.New(simulator.Config{
		Host:              host,
		Port:              port,
		Title:             title,
		HeartbeatInterval: heartbeat,
		CaptureDir:        captureDir,
		OnKey: func(remoteAddr string, ev protocol.KeyEvent) {
			logging.Info("⌨️  Key",
				zap.String("remote_addr", remoteAddr),
				zap.String("button", protocol.ButtonName(ev.Code)),
				zap.Bool("pressed", ev.Pressed),
			)
		},
	})
	if err := srv.Listen(); err != nil {
		return err
	}

	if advertise != "" {
		announced, err := discovery.Advertise(advertise, port)
		if err != nil {
			return err
		}
		defer announced.Shutdown()
		logging.Info("Announced over mDNS",
			zap.String("instance", advertise),
			zap.String("service", discovery.ServiceType),
		)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if dropEvery > 0 {
		go dropLoop(ctx, srv, dropEvery)
	}

	printer := ui.NewPrinter(cmd.OutOrStdout())
	printer.PrintHeader("Simulated mount", "virtkeypad-sim serve", map[string]string{
		"Address":   "ws://" + srv.Addr() + "/",
		"Heartbeat": heartbeat.String(),
		"Capture":   captureDir,
		"mDNS":      advertise,
	})
	printer.Println("Press Ctrl+C to stop")
	return srv.Serve(ctx)
}

func dropLoop(ctx context.Context, srv *simulator.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := srv.DropConnections(); n > 0 {
				logging.Info("Dropped clients", zap.Int("count", n))
			}
		}
	}
}

// Version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("virtkeypad-sim %s (commit: %s)\n", version.Version, version.Commit)
	},
}
