// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package roland

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies one parameter register in the device's address map.
// It is value-comparable and usable as a map key.
type Address [AddressSize]byte

// String returns the compact hex form, e.g. "60000410".
func (a Address) String() string {
	return fmt.Sprintf("%02X%02X%02X%02X", a[0], a[1], a[2], a[3])
}

// ParseAddress parses a hex address string. Accepts the compact form
// ("60000410") as well as space- or colon-separated byte pairs.
func ParseAddress(s string) (Address, error) {
	var a Address
	clean := strings.NewReplacer(" ", "", ":", "").Replace(s)
	raw, err := hex.DecodeString(clean)
	if err != nil {
		return a, fmt.Errorf("invalid address %q: %v", s, err)
	}
	if len(raw) != AddressSize {
		return a, fmt.Errorf("invalid address %q: want %d bytes, got %d", s, AddressSize, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// Message is a decoded vendor message. Instances are transient, produced
// per Decode call.
type Message struct {
	Command    byte
	Address    Address
	Value      byte // DT1 data byte
	Checksum   byte // checksum as received
	ChecksumOK bool
}

// IsWrite reports whether the message carries data (DT1).
func (m *Message) IsWrite() bool {
	return m.Command == CommandDT1
}
