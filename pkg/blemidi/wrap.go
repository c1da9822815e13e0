// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package blemidi

import "time"

// Wrap frames a vendor message for a single BLE MIDI write:
// header byte, timestamp, SysEx start, message, timestamp, SysEx end.
// The timestamp's marker bit is forced so the receiver never confuses
// it with message data.
func Wrap(msg []byte, ts byte) []byte {
	ts |= 0x80
	out := make([]byte, 0, len(msg)+5)
	out = append(out, packetHeader, ts, SysExStart)
	out = append(out, msg...)
	out = append(out, ts, SysExEnd)
	return out
}

// TimestampByte derives the transport timestamp byte for t: the low
// seven bits of the millisecond clock with the marker bit set
func TimestampByte(t time.Time) byte {
	return 0x80 | byte(t.UnixMilli()&0x7F)
}
