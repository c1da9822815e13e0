// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	// BLE connection flags
	bleName    string
	bleAddress string

	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Expression pedal flags
	pedalName string
	pedalCC   int

	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "fermata",
	Short: "Roland amplifier editor and protocol analyzer",
	Long: `Fermata - A CLI tool for editing and monitoring Roland amplifiers over BLE MIDI.

Provides an interactive parameter editor with expression pedal support, plus
commands for traffic monitoring, capture replay and one-shot parameter access
to help diagnose communication issues and protocol anomalies.

Connection modes:
  BLE (default): --device AMP-NAME  or  --address AA:BB:CC:DD:EE:FF
  Serial:        --port /dev/ttyUSB0 [--baud 115200]
  WebSocket:     --url ws://host/path [--username user]

For WebSocket authentication, the password is read from the FERMATA_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell history.`,
	Version: "1.2.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

func init() {
	// BLE connection flags
	rootCmd.PersistentFlags().StringVarP(&bleName, "device", "d", "", "BLE device name (substring match)")
	rootCmd.PersistentFlags().StringVar(&bleAddress, "address", "", "BLE device address")

	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Expression pedal flags
	rootCmd.PersistentFlags().StringVar(&pedalName, "pedal", "", "MIDI input name for the expression pedal (substring match)")
	rootCmd.PersistentFlags().IntVar(&pedalCC, "pedal-cc", 11, "MIDI controller number the pedal sends")

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
