// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stagewire/fermata/pkg/blemidi"
	"github.com/stagewire/fermata/pkg/roland"
	"github.com/stagewire/fermata/pkg/tape"
)

var (
	replayTiming     bool
	replayErrorsOnly bool
	replayRaw        bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <capture-file>",
	Short: "Replay a recorded traffic capture",
	Long: `Replay a capture recorded with 'monitor --record' through the same
reassembly and decode pipeline as live traffic, without a device.

Inbound frames are reassembled and decoded exactly as the monitor does
it; outbound frames are shown as writes. With --timing frames are paced
to the capture's original timestamps, which also reproduces reassembly
stall handling; without it frames are processed back to back.

Examples:
  # Inspect a capture attached to a bug report
  fermata replay session.tape

  # Re-live it at original speed, errors only
  fermata replay session.tape --timing --errors-only

Exit codes:
  0 - Capture replayed, at least one message decoded
  1 - Capture contained no complete messages
  2 - File or capture format error`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayTiming, "timing", false, "Pace frames to the capture's original timestamps")
	replayCmd.Flags().BoolVar(&replayErrorsOnly, "errors-only", false, "Only display messages with errors")
	replayCmd.Flags().BoolVar(&replayRaw, "raw", false, "Display raw frame bytes")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "File error: %v\n", err)
		os.Exit(2)
	}
	defer f.Close()

	fmt.Printf("Fermata - Capture Replay\n")
	fmt.Printf("Capture: %s\n", args[0])
	if replayTiming {
		fmt.Printf("Pacing: original timestamps\n")
	} else {
		fmt.Printf("Pacing: none\n")
	}
	fmt.Printf("\n")

	reader := tape.NewReader(f)
	reasm := blemidi.NewReassembler()
	stats := newMonitorStats()

	frames := 0
	var lastOffset uint32
	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Capture error after %d frames: %v\n", frames, err)
			os.Exit(2)
		}
		frames++

		if replayTiming && frame.Offset > lastOffset {
			time.Sleep(time.Duration(frame.Offset-lastOffset) * time.Millisecond)
		}
		lastOffset = frame.Offset

		if frame.Dir == tape.DirOut {
			if !replayErrorsOnly {
				fmt.Printf("[+%7dms] TX %s\n", frame.Offset, roland.FormatBytes(frame.Data))
			}
			continue
		}

		stats.Fragments++
		if replayRaw {
			fmt.Printf("[+%7dms] RX %s\n", frame.Offset, roland.FormatBytes(frame.Data))
		}

		if reasm.AbandonStalled() {
			stats.StalledBuffers++
			fmt.Printf("[+%7dms] STALLED: abandoned incomplete message buffer\n", frame.Offset)
		}

		msg := reasm.Feed(frame.Data)
		if msg == nil {
			continue
		}

		anomalies := roland.ValidateMessage(msg)
		decoded := roland.Decode(msg)
		stats.Update(decoded, anomalies)

		if decoded == nil {
			printDecodeFailure(msg)
			continue
		}
		if len(anomalies) > 0 {
			printAnomalies(decoded, anomalies)
			continue
		}
		if !replayErrorsOnly {
			fmt.Printf("[+%7dms] %s\n", frame.Offset, roland.FormatMessage(decoded))
		}
	}

	fmt.Printf("\n%s\n", stats.String())
	fmt.Printf("Frames replayed: %d\n", frames)

	if stats.Messages == 0 {
		fmt.Fprintf(os.Stderr, "No complete messages in capture\n")
		os.Exit(1)
	}

	return nil
}
