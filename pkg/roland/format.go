// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package roland

import (
	"fmt"
	"strings"
)

// CommandName returns the human-readable name for a command byte
func CommandName(cmd byte) string {
	switch cmd {
	case CommandDT1:
		return "DT1"
	case CommandRQ1:
		return "RQ1"
	default:
		return "UNKNOWN"
	}
}

// FormatMessage formats a decoded message into a human-readable line
func FormatMessage(m *Message) string {
	check := "ok"
	if !m.ChecksumOK {
		check = fmt.Sprintf("BAD (got 0x%02X)", m.Checksum)
	}
	return fmt.Sprintf("%s (0x%02X) addr=%s value=%d checksum=%s",
		CommandName(m.Command), m.Command, m.Address, m.Value, check)
}

// FormatBytes renders a byte sequence as spaced uppercase hex pairs,
// e.g. "41 10 00 00 00 00 09 12".
func FormatBytes(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}
