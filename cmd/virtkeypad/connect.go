package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/logging"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/transport"
	"github.com/muurk/virtkeypad/internal/ui"
)

// Keypad command flags
var (
	showPixels   bool
	pressDelay   time.Duration
	pressTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pressCmd)
}

// connectCmd opens the interactive keypad
var connectCmd = &cobra.Command{
	Use:   "connect [mount]",
	Short: "Open the interactive keypad",
	Long: `Open a full-screen keypad for a mount.

The mount display is mirrored in the terminal and keyboard keys are sent as
keypad buttons. Press ? inside the keypad for the key bindings. The link is
reopened automatically if the mount drops it.`,
	Example: `  # Keypad for the default mount
  virtkeypad connect

  # Keypad for a named mount
  virtkeypad connect observatory

  # Keypad for an address, with the pixel plane shown
  virtkeypad connect 192.168.2.15 --pixels`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().BoolVar(&showPixels, "pixels", false, "Show the pixel plane under the text grid")
}

func runConnect(cmd *cobra.Command, args []string) error {
	if !ui.IsTerminal() {
		return fmt.Errorf("the keypad needs a terminal; use 'virtkeypad watch' for plain output")
	}

	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := initLogging(registry.Preferences, true); err != nil {
		return err
	}
	defer logging.Sync()

	screen := display.NewScreen()
	screen.ShowPlaceholder()
	bridge := ui.NewBridge(screen)

	c, err := newClient(registry, targetFrom(args), hooks{
		OnCommand: bridge.OnCommand,
		OnState:   bridge.OnState,
		OnError:   bridge.OnError,
	})
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	go func() {
		if err := c.transport.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error("Transport stopped", zap.Error(err))
		}
	}()

	pixels := showPixels || registry.Preferences.ShowPixels
	model := ui.NewKeypadModel(c.mount.URL(), screen, c.transport, pixels)
	return ui.RunKeypad(ctx, model, bridge)
}

// watchCmd prints the display without taking over the terminal
var watchCmd = &cobra.Command{
	Use:   "watch [mount]",
	Short: "Print the mount display as it changes",
	Long: `Connect to a mount and print its display every time it changes.

Nothing is sent to the mount. Useful over a plain pipe or together with
--log-level debug to follow the decoded display commands.`,
	Example: `  # Follow the default mount
  virtkeypad watch

  # Log every display command as well
  virtkeypad watch observatory --log-level info`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := initLogging(registry.Preferences, false); err != nil {
		return err
	}
	defer logging.Sync()

	screen := display.NewScreen()
	bridge := ui.NewBridge(screen)

	// the address is known once the mount is resolved, before Run
	var handle protocol.CommandHandler
	c, err := newClient(registry, targetFrom(args), hooks{
		OnCommand: func(cmd protocol.Command) { handle(cmd) },
		OnState:   bridge.OnState,
		OnError:   bridge.OnError,
	})
	if err != nil {
		return err
	}
	addr := c.mount.Address()
	handle = protocol.LoggingHandler(addr, bridge.OnCommand)
	defer func() { _ = c.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	go bridge.Run(ctx, func(msg tea.Msg) {
		switch m := msg.(type) {
		case ui.ScreenChangedMsg:
			fmt.Fprintln(out, screen.String())
			fmt.Fprintln(out)
		case ui.StateMsg:
			fmt.Fprintf(out, "[%s] %s\n", addr, m.State)
		case ui.ErrorMsg:
			fmt.Fprintf(out, "[%s] error: %v\n", addr, m.Err)
		}
	})

	err = c.transport.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pressCmd taps buttons and exits
var pressCmd = &cobra.Command{
	Use:   "press <button>...",
	Short: "Tap keypad buttons",
	Long: `Connect to a mount, tap each button in order and disconnect.

Every tap is a press followed by a release. Button names are case
insensitive and may carry a "key_" prefix.

Buttons: ` + strings.Join(protocol.ButtonNames(), ", "),
	Example: `  # Open the menu and select the first entry
  virtkeypad press menu enter

  # Stop all motion on a named mount
  virtkeypad press stop --mount observatory

  # Type a value slowly
  virtkeypad press 1 2 3 enter --delay 500ms`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPress,
}

func init() {
	pressCmd.Flags().DurationVar(&pressDelay, "delay", 200*time.Millisecond, "Pause between taps")
	pressCmd.Flags().DurationVar(&pressTimeout, "timeout", 10*time.Second, "Give up if the mount cannot be reached in time")
}

func runPress(cmd *cobra.Command, args []string) error {
	codes := make([]byte, 0, len(args))
	for _, name := range args {
		code, ok := protocol.LookupButton(name)
		if !ok {
			return fmt.Errorf("unknown button %q", name)
		}
		codes = append(codes, code)
	}

	registry, err := loadRegistry()
	if err != nil {
		return err
	}
	if err := initLogging(registry.Preferences, false); err != nil {
		return err
	}
	defer logging.Sync()

	open := make(chan struct{}, 1)
	c, err := newClient(registry, mountTarget, hooks{
		OnState: func(s transport.State) {
			if s == transport.StateOpen {
				select {
				case open <- struct{}{}:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := signalContext()
	defer cancel()
	go func() { _ = c.transport.Run(ctx) }()

	select {
	case <-open:
	case <-time.After(pressTimeout):
		err := fmt.Errorf("mount %s did not answer within %s", c.mount.Address(), pressTimeout)
		ui.NewPrinter(cmd.ErrOrStderr()).PrintError("Mount not reachable", err, []string{
			"Check that the mount is powered on and reachable on the network",
			"The keypad listens on port 8000 unless configured otherwise",
			"Only one keypad client may be connected on some firmware versions",
			"Try a longer --timeout",
		})
		return err
	case <-ctx.Done():
		return nil
	}

	for i, code := range codes {
		if i > 0 {
			time.Sleep(pressDelay)
		}
		if err := c.transport.Tap(ctx, code); err != nil {
			return fmt.Errorf("failed to send %s: %w", protocol.ButtonName(code), err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %s\n", protocol.ButtonName(code))
	}
	return nil
}

// targetFrom prefers a positional mount over --mount
func targetFrom(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return mountTarget
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
