// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Rhys Calloway, Stagewire

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"tinygo.org/x/bluetooth"
)

var (
	scanTimeoutSec int
	scanAll        bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for amplifiers and expression pedals",
	Long: `Scan for nearby BLE MIDI amplifiers and list local MIDI inputs.

BLE devices advertising the MIDI service are listed with their name,
address, and signal strength; pass --all to list every advertiser seen
during the scan window. Local MIDI inputs are listed afterwards so an
expression pedal can be picked for 'control --pedal'.

Examples:
  # Find the amp before connecting
  fermata scan

  # See everything in BLE range
  fermata scan --all --timeout 20

Exit codes:
  0 - At least one amplifier found
  1 - No amplifiers found
  2 - Bluetooth error`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().IntVar(&scanTimeoutSec, "timeout", 10, "Scan duration in seconds")
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "List every BLE advertiser, not just BLE MIDI devices")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Fermata - Device Scan\n")
	fmt.Printf("Timeout: %d seconds\n\n", scanTimeoutSec)

	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		fmt.Fprintf(os.Stderr, "Bluetooth error: %v\n", err)
		os.Exit(2)
	}

	svcUUID, err := bluetooth.ParseUUID(midiServiceUUID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bluetooth error: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("Scanning for BLE devices...\n")

	amps := 0
	seen := make(map[string]bool)
	timer := time.AfterFunc(time.Duration(scanTimeoutSec)*time.Second, func() {
		adapter.StopScan()
	})
	defer timer.Stop()

	err = adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		if seen[addr] {
			return
		}
		seen[addr] = true

		isAmp := result.AdvertisementPayload.HasServiceUUID(svcUUID)
		if !isAmp && !scanAll {
			return
		}

		name := result.LocalName()
		if name == "" {
			name = "(unnamed)"
		}
		tag := ""
		if isAmp {
			amps++
			tag = " [BLE MIDI]"
		}
		fmt.Printf("\nDevice found:%s\n", tag)
		fmt.Printf("  Name: %s\n", name)
		fmt.Printf("  Address: %s\n", addr)
		fmt.Printf("  RSSI: %d dBm\n", result.RSSI)
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Scan error: %v\n", err)
		os.Exit(2)
	}

	// MIDI inputs, for the pedal side
	fmt.Printf("\nLocal MIDI inputs:\n")
	inputs := 0
	drv, err := rtmididrv.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "MIDI driver unavailable: %v\n", err)
	} else {
		defer drv.Close()
		ins, insErr := drv.Ins()
		if insErr != nil {
			fmt.Fprintf(os.Stderr, "MIDI input listing failed: %v\n", insErr)
		} else if len(ins) == 0 {
			fmt.Printf("  (none)\n")
		} else {
			for _, in := range ins {
				fmt.Printf("  %s\n", in.String())
				inputs++
			}
		}
	}

	// Summary
	fmt.Printf("\n--- Scan summary ---\n")
	fmt.Printf("Amplifiers found: %d\n", amps)
	fmt.Printf("MIDI inputs found: %d\n", inputs)

	if amps == 0 {
		fmt.Printf("No amplifiers discovered. Check the amp is powered on and advertising.\n")
		os.Exit(1)
	}

	return nil
}
