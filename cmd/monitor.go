// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/stagewire/fermata/pkg/blemidi"
	"github.com/stagewire/fermata/pkg/roland"
	"github.com/stagewire/fermata/pkg/tape"
)

var (
	monitorErrorsOnly bool
	monitorRaw        bool
	monitorStatsEvery int
	monitorUseTUI     bool
	monitorRecord     string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Decode and analyze amplifier traffic in real time",
	Long: `Reassemble, decode and validate notification traffic as it arrives.

This command validates each reassembled message and detects:
  - Foreign traffic (non-Roland headers, unknown commands)
  - Truncated messages and checksum mismatches
  - Stalled reassembly buffers abandoned mid-message
  - Statistics and trends (message rate, error rate)

By default every decoded message is displayed. Use --errors-only to
display anomalies alone, and --raw to dump each transport fragment as hex.

With --record FILE, every inbound fragment is written to a capture file
that 'fermata replay' can play back later.

Messages are validated in real-time, with anomalies highlighted
immediately and periodic statistics summaries displayed at configurable
intervals.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().BoolVar(&monitorErrorsOnly, "errors-only", false, "Show only anomalous messages")
	monitorCmd.Flags().BoolVar(&monitorRaw, "raw", false, "Dump each transport fragment as hex")
	monitorCmd.Flags().IntVar(&monitorStatsEvery, "stats-interval", 10, "Statistics update interval (seconds)")
	monitorCmd.Flags().BoolVar(&monitorUseTUI, "tui", true, "Use terminal UI (false for text mode)")
	monitorCmd.Flags().StringVar(&monitorRecord, "record", "", "Record inbound fragments to a capture file")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	var rec *tape.Recorder
	if monitorRecord != "" {
		f, err := os.Create(monitorRecord)
		if err != nil {
			return fmt.Errorf("failed to create capture file: %v", err)
		}
		defer f.Close()
		rec = tape.NewRecorder(f)
	}

	if monitorUseTUI {
		return runMonitorTUI(conn, connInfo, rec)
	}
	return runMonitorText(conn, connInfo, rec)
}

//////////////////////////////////////////////////////////////
// Statistics
//////////////////////////////////////////////////////////////

// monitorStats tracks decode and validation counters for the monitor
type monitorStats struct {
	StartTime time.Time

	Fragments       uint64
	Messages        uint64
	CleanMessages   uint64
	DecodeFailures  uint64
	ChecksumErrors  uint64
	ForeignHeaders  uint64
	Truncated       uint64
	UnknownCommands uint64
	StalledBuffers  uint64

	MessageRate float64
	ErrorRate   float64
}

func newMonitorStats() *monitorStats {
	return &monitorStats{StartTime: time.Now()}
}

// Update folds one reassembled message into the counters
func (s *monitorStats) Update(decoded *roland.Message, anomalies []roland.ValidationError) {
	s.Messages++
	if decoded == nil {
		s.DecodeFailures++
	}
	if len(anomalies) == 0 {
		s.CleanMessages++
		return
	}
	for _, a := range anomalies {
		switch a.Type {
		case roland.AnomalyChecksumMismatch:
			s.ChecksumErrors++
		case roland.AnomalyForeignHeader:
			s.ForeignHeaders++
		case roland.AnomalyShort, roland.AnomalyTruncated:
			s.Truncated++
		case roland.AnomalyUnknownCommand:
			s.UnknownCommands++
		}
	}
}

// CalculateRates calculates message and error rates
func (s *monitorStats) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.Messages) / elapsed
		errors := s.DecodeFailures + s.ChecksumErrors + s.ForeignHeaders + s.Truncated + s.UnknownCommands + s.StalledBuffers
		s.ErrorRate = float64(errors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *monitorStats) String() string {
	s.CalculateRates()

	var cleanPercent float64
	if s.Messages > 0 {
		cleanPercent = float64(s.CleanMessages) * 100.0 / float64(s.Messages)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Monitor Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Fragments:       %8d\n", s.Fragments)
	result += fmt.Sprintf("Messages:        %8d\n", s.Messages)
	result += fmt.Sprintf("  Clean:            %5d (%.1f%%)\n", s.CleanMessages, cleanPercent)

	if s.DecodeFailures > 0 {
		result += fmt.Sprintf("Decode Failures: %8d\n", s.DecodeFailures)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.ForeignHeaders > 0 {
		result += fmt.Sprintf("Foreign Headers: %8d\n", s.ForeignHeaders)
	}
	if s.Truncated > 0 {
		result += fmt.Sprintf("Truncated:       %8d\n", s.Truncated)
	}
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("Unknown Cmds:    %8d\n", s.UnknownCommands)
	}
	if s.StalledBuffers > 0 {
		result += fmt.Sprintf("Stalled Buffers: %8d\n", s.StalledBuffers)
	}

	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "=====================================\n"

	return result
}

//////////////////////////////////////////////////////////////
// Text Mode
//////////////////////////////////////////////////////////////

// printDecodeFailure prints a reassembled sequence the decoder rejected
func printDecodeFailure(data []byte) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31mDECODE FAILED:\033[0m %s\n", timestamp, roland.FormatBytes(data))
	fmt.Printf("  >>> NOT A DT1 MESSAGE <<<\n\n")
}

// printAnomalies prints validation errors for a reassembled message
func printAnomalies(decoded *roland.Message, anomalies []roland.ValidationError) {
	timestamp := time.Now().Format("15:04:05.000")

	label := "(undecodable)"
	if decoded != nil {
		label = fmt.Sprintf("%s (0x%02X)", roland.CommandName(decoded.Command), decoded.Command)
	}
	fmt.Printf("[%s] \033[1;33mVALIDATION ERROR:\033[0m %s\n", timestamp, label)

	for i, err := range anomalies {
		switch err.Type {
		case roland.AnomalyChecksumMismatch:
			fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, err.Message)
			if expected, ok := err.Details["expected"].(byte); ok {
				if got, ok := err.Details["got"].(byte); ok {
					fmt.Printf("    Checksum: expected=0x%02X, got=0x%02X\n", expected, got)
				}
			}
			if addr, ok := err.Details["address"].(string); ok {
				fmt.Printf("    Address: %s\n", addr)
			}

		case roland.AnomalyForeignHeader:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if offset, ok := err.Details["offset"].(int); ok {
				fmt.Printf("    Header offset: %d\n", offset)
			}

		case roland.AnomalyShort, roland.AnomalyTruncated:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if received, ok := err.Details["length"].(int); ok {
				if expected, ok := err.Details["expected"].(int); ok {
					fmt.Printf("    Length: received=%d, expected=%d\n", received, expected)
				}
			}

		case roland.AnomalyUnknownCommand:
			fmt.Printf("  Issue %d: \033[1;31m%s\033[0m\n", i+1, err.Message)
			if command, ok := err.Details["command"].(byte); ok {
				fmt.Printf("    Command byte: 0x%02X\n", command)
			}

		default:
			fmt.Printf("  Issue %d: %s\n", i+1, err.Message)
		}
	}

	// Checksum mismatches still decode; anything else is dropped by the
	// permissive path
	if decoded != nil {
		fmt.Printf("  Decoded anyway: %s\n", roland.FormatMessage(decoded))
	}
	fmt.Printf("\n")
}

// runMonitorText runs the monitor in text mode
func runMonitorText(conn Connection, connInfo string, rec *tape.Recorder) error {
	fmt.Printf("Fermata - Traffic Monitor\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Statistics interval: %d seconds\n", monitorStatsEvery)
	if monitorErrorsOnly {
		fmt.Printf("Mode: Errors only\n")
	} else {
		fmt.Printf("Mode: All messages\n")
	}
	if rec != nil {
		fmt.Printf("Recording: %s\n", monitorRecord)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	reasm := blemidi.NewReassembler()
	stats := newMonitorStats()

	statsTicker := time.NewTicker(time.Duration(monitorStatsEvery) * time.Second)
	defer statsTicker.Stop()
	sweepTicker := time.NewTicker(500 * time.Millisecond)
	defer sweepTicker.Stop()

	// Channel for non-blocking fragment reads
	fragChan := make(chan []byte, 10)
	go func() {
		defer close(fragChan)
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if err == ErrConnectionClosed {
					return
				}
				log.Printf("Read error: %v", err)
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if n == 0 {
				continue
			}
			fragment := make([]byte, n)
			copy(fragment, buf[:n])
			fragChan <- fragment
		}
	}()

	for {
		select {
		case fragment, ok := <-fragChan:
			if !ok {
				// Connection gone; print a final summary and exit
				fmt.Println()
				fmt.Print(stats.String())
				return nil
			}

			stats.Fragments++
			if rec != nil {
				if err := rec.Record(tape.DirIn, fragment); err != nil {
					log.Printf("Capture write failed: %v", err)
				}
			}
			if monitorRaw {
				fmt.Printf("[%s] RX %s\n", time.Now().Format("15:04:05.000"), roland.FormatBytes(fragment))
			}

			// Count buffers that stalled while the line was quiet
			if reasm.AbandonStalled() {
				stats.StalledBuffers++
				fmt.Printf("[%s] \033[1;33mSTALLED:\033[0m abandoned incomplete message buffer\n\n",
					time.Now().Format("15:04:05.000"))
			}

			msg := reasm.Feed(fragment)
			if msg == nil {
				continue
			}

			anomalies := roland.ValidateMessage(msg)
			decoded := roland.Decode(msg)
			stats.Update(decoded, anomalies)

			if decoded == nil {
				printDecodeFailure(msg)
			} else if len(anomalies) > 0 {
				printAnomalies(decoded, anomalies)
			} else if !monitorErrorsOnly {
				fmt.Printf("[%s] %s\n", time.Now().Format("15:04:05.000"), roland.FormatMessage(decoded))
			}

		case <-sweepTicker.C:
			if reasm.AbandonStalled() {
				stats.StalledBuffers++
				fmt.Printf("[%s] \033[1;33mSTALLED:\033[0m abandoned incomplete message buffer\n\n",
					time.Now().Format("15:04:05.000"))
			}

		case <-statsTicker.C:
			// Print statistics
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
		}
	}
}

//////////////////////////////////////////////////////////////
// TUI Mode
//////////////////////////////////////////////////////////////

// runMonitorTUI runs the monitor in TUI mode
func runMonitorTUI(conn Connection, connInfo string, rec *tape.Recorder) error {
	m := initialMonitorModel(connInfo, monitorStatsEvery, monitorErrorsOnly, rec)
	p := tea.NewProgram(m)

	// Reader goroutine: reassembles fragments and feeds the TUI
	go func() {
		reasm := blemidi.NewReassembler()
		buf := make([]byte, 512)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				if err == ErrConnectionClosed {
					p.Send(monitorConnClosedMsg{})
					return
				}
				time.Sleep(10 * time.Millisecond)
				continue
			}
			if n == 0 {
				continue
			}
			fragment := buf[:n]

			if rec != nil {
				rec.Record(tape.DirIn, fragment)
			}

			stalled := reasm.AbandonStalled()

			var raw []byte
			if monitorRaw {
				raw = make([]byte, n)
				copy(raw, fragment)
			}

			msg := reasm.Feed(fragment)

			data := monitorDataMsg{stalled: stalled, raw: raw}
			if msg != nil {
				data.message = msg
				data.decoded = roland.Decode(msg)
				data.anomalies = roland.ValidateMessage(msg)
			}
			p.Send(data)
		}
	}()

	// Run TUI
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}

	return nil
}
