// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire
//
// Fermata - Roland Amplifier Editor and Protocol Analyzer
//
// A CLI tool for editing Roland amplifier parameters over BLE MIDI and
// decoding their SysEx traffic in human-readable format.

package main

import (
	"os"

	"github.com/stagewire/fermata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
