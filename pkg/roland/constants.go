// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package roland implements the address-mapped SysEx dialect spoken by
// Roland/Boss amplifiers.
//
// Every message is a fixed seven-byte vendor header, a command byte, a
// four-byte parameter address, a payload, and a mod-128 checksum over the
// address and payload. DT1 (0x12) writes a value into an address; RQ1 (0x11)
// asks the device to report the value at an address. The package provides
// encoding, total (never-failing) decoding, checksum validation, and
// human-readable formatting.
package roland

// Vendor header bytes
const (
	ManufacturerID = 0x41 // Roland
	DeviceID       = 0x10
)

// Header is the fixed vendor/model prefix carried by every message:
// manufacturer, device ID, then the five model ID bytes.
var Header = [HeaderSize]byte{ManufacturerID, DeviceID, 0x00, 0x00, 0x00, 0x00, 0x09}

// Commands
const (
	CommandRQ1 = 0x11 // data request (read)
	CommandDT1 = 0x12 // data set (write / data response)
)

// Message layout
const (
	HeaderSize   = 7
	AddressSize  = 4
	WriteSize    = HeaderSize + 1 + AddressSize + 1 + 1 // header, command, address, value, checksum
	ReadSize     = HeaderSize + 1 + AddressSize + 4 + 1 // header, command, address, size, checksum
	MinSize      = 10                                   // shortest sequence worth classifying
	checksumBase = 128
)

// MaxValue is the largest parameter value (7-bit data byte).
const MaxValue = 0x7F

// readRequestSize is the fixed size suffix of an RQ1 message: request one byte.
var readRequestSize = [4]byte{0x00, 0x00, 0x00, 0x01}
