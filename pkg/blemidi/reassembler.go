// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package blemidi

import "time"

// Reassembler collects the bytes of one vendor message scattered across
// BLE MIDI notification fragments
type Reassembler struct {
	buffer    []byte
	buffering bool
	lastByte  time.Time

	now func() time.Time
}

// NewReassembler creates an empty reassembler
func NewReassembler() *Reassembler {
	return &Reassembler{
		buffer: make([]byte, 0, MaxMessageSize),
		now:    time.Now,
	}
}

// Reset discards any partially assembled message
func (r *Reassembler) Reset() {
	r.buffer = r.buffer[:0]
	r.buffering = false
}

// Buffering reports whether a message start has been seen without its end
func (r *Reassembler) Buffering() bool {
	return r.buffering
}

// AbandonStalled drops the in-progress buffer if no fragment has
// contributed to it within StallTimeout. Returns true if a buffer was
// dropped.
func (r *Reassembler) AbandonStalled() bool {
	if r.buffering && r.now().Sub(r.lastByte) > StallTimeout {
		r.Reset()
		return true
	}
	return false
}

// Feed scans one notification fragment and returns the completed vendor
// message, or nil when the fragment does not finish one.
//
// SysExStart restarts assembly and discards any partial buffer. SysExEnd
// completes the buffer and the rest of the fragment is ignored. Bytes
// below 0x80 are message data; any other byte is a transport timestamp
// and is skipped. Data bytes arriving while no start has been seen are
// orphan continuations and are ignored.
func (r *Reassembler) Feed(fragment []byte) []byte {
	r.AbandonStalled()

	for _, b := range fragment {
		switch {
		case b == SysExStart:
			r.buffer = r.buffer[:0]
			r.buffering = true
			r.lastByte = r.now()

		case b == SysExEnd:
			if !r.buffering {
				continue
			}
			msg := make([]byte, len(r.buffer))
			copy(msg, r.buffer)
			r.Reset()
			return msg

		case b < 0x80:
			if !r.buffering {
				continue
			}
			if len(r.buffer) >= MaxMessageSize {
				r.Reset()
				continue
			}
			r.buffer = append(r.buffer, b)
			r.lastByte = r.now()

		default:
			// transport timestamp
		}
	}
	return nil
}
