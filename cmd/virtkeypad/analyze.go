package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/muurk/virtkeypad/internal/capture"
	"github.com/muurk/virtkeypad/internal/display"
	"github.com/muurk/virtkeypad/internal/protocol"
	"github.com/muurk/virtkeypad/internal/ui"
)

var (
	analyzeReplay bool
	analyzeQuiet  bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolVar(&analyzeReplay, "replay", false, "Replay received display commands and print the final screen")
	analyzeCmd.Flags().BoolVar(&analyzeQuiet, "quiet", false, "Only print the summary (and the screen with --replay)")
}

// analyzeCmd decodes a capture file
var analyzeCmd = &cobra.Command{
	Use:   "analyze <capture.jsonl>",
	Short: "Decode a captured keypad session",
	Long: `Decode every frame of a JSONL capture written with --capture-dir.

Each message is split into frames, the checksum is checked and the frame is
decoded as a display command, heartbeat or key event.`,
	Example: `  # Decode a capture
  virtkeypad analyze captures/capture-20251121-030905.jsonl

  # Rebuild the display the client saw
  virtkeypad analyze capture.jsonl --replay --quiet`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

// analysisSummary counts what a capture contained
type analysisSummary struct {
	Messages  int
	Frames    int
	Display   int
	Heartbeat int
	Keys      int
	Other     int
	BadFrames int
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	records, err := capture.Load(args[0])
	if err != nil {
		return fmt.Errorf("failed to read capture: %w", err)
	}

	out := cmd.OutOrStdout()
	if !analyzeQuiet {
		ui.NewPrinter(out).PrintHeader("Capture analysis", "virtkeypad analyze", map[string]string{
			"File":     args[0],
			"Messages": strconv.Itoa(len(records)),
			"Replay":   strconv.FormatBool(analyzeReplay),
		})
	}

	var screen *display.Screen
	if analyzeReplay {
		screen = display.NewScreen()
	}

	sum := analyzeRecords(out, records, screen, !analyzeQuiet)

	fmt.Fprintf(out, "=== Capture summary: %s ===\n", args[0])
	fmt.Fprintf(out, "Messages:   %d\n", sum.Messages)
	fmt.Fprintf(out, "Frames:     %d\n", sum.Frames)
	fmt.Fprintf(out, "Display:    %d\n", sum.Display)
	fmt.Fprintf(out, "Heartbeats: %d\n", sum.Heartbeat)
	fmt.Fprintf(out, "Key events: %d\n", sum.Keys)
	fmt.Fprintf(out, "Other:      %d\n", sum.Other)
	fmt.Fprintf(out, "Bad frames: %d\n", sum.BadFrames)

	if screen != nil {
		fmt.Fprintln(out)
		fmt.Fprintln(out, screen.String())
	}
	return nil
}

// analyzeRecords decodes every record, printing each frame when verbose and
// applying received display commands to screen when it is not nil
func analyzeRecords(out io.Writer, records []capture.Record, screen *display.Screen, verbose bool) analysisSummary {
	var sum analysisSummary
	var replay *protocol.Dispatcher
	if screen != nil {
		replay = protocol.NewDispatcher(func(c protocol.Command) { screen.Apply(c) })
	}

	for _, rec := range records {
		sum.Messages++
		payload, err := hex.DecodeString(rec.PayloadHex)
		if err != nil {
			if verbose {
				fmt.Fprintf(out, "#%d: bad payload hex: %v\n", rec.MessageNum, err)
			}
			sum.BadFrames++
			continue
		}

		if verbose {
			fmt.Fprintf(out, "#%d %s %s (%d bytes)\n",
				rec.MessageNum, rec.Timestamp.Format("15:04:05.000"), rec.Direction, len(payload))
		}

		for _, rep := range capture.Analyze(rec.Direction, payload) {
			sum.Frames++
			switch {
			case !rep.Checksum || rep.Err != nil:
				sum.BadFrames++
			case rep.Kind == "display":
				sum.Display++
			case rep.Kind == "heartbeat":
				sum.Heartbeat++
			case rep.Kind == "key":
				sum.Keys++
			default:
				sum.Other++
			}

			if verbose {
				fmt.Fprintf(out, "  %-9s %s\n", rep.Kind, frameDetail(rep))
			}
		}

		if replay != nil && rec.Direction == capture.DirectionReceived {
			// frames may span messages
			_ = replay.Feed(payload)
		}
	}
	return sum
}

func frameDetail(rep capture.FrameReport) string {
	switch {
	case rep.Err != nil:
		return "error: " + rep.Err.Error()
	case !rep.Checksum:
		return fmt.Sprintf("% x (%s)", rep.Body, rep.Detail)
	default:
		return rep.Detail
	}
}
