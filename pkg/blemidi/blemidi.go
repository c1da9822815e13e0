// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package blemidi implements the BLE MIDI transport framing that carries
// vendor SysEx messages. Notifications arrive as short fragments mixing
// 7-bit data bytes with timestamp marker bytes (>= 0x80); a single vendor
// message may span several fragments or share one with unrelated traffic.
package blemidi

import "time"

const (
	// SysExStart marks the beginning of a vendor message in the stream
	SysExStart byte = 0xF0
	// SysExEnd marks the end of a vendor message
	SysExEnd byte = 0xF7

	// packetHeader opens every outbound BLE MIDI packet
	packetHeader byte = 0x90

	// MaxMessageSize bounds the reassembly buffer. Vendor messages are
	// far smaller, so anything that grows past this is garbage.
	MaxMessageSize = 128

	// StallTimeout is how long a partial message may sit with no new
	// data before it is abandoned. Bounds memory when a terminator is
	// lost in transit.
	StallTimeout = 1000 * time.Millisecond
)
