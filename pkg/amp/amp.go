// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package amp drives one connected amplifier. A Session owns the
// serialized write path with its settling delays, reassembles and
// decodes inbound notification fragments, correlates data responses
// with the reads it issued, and reports every parameter change with its
// origin. Disconnect is a hard reset: buffers, pending reads and pickup
// state are cleared synchronously.
package amp

import (
	"errors"
	"time"
)

// Transport is the connected byte pipe the session writes to. Inbound
// fragments arrive separately through Session.HandleFragment, so BLE,
// serial and websocket transports all satisfy this.
type Transport interface {
	Write(data []byte) error
	Close() error
}

// ErrNotConnected is returned by any write attempted before Open or
// after Close, without touching the transport.
var ErrNotConnected = errors.New("amp: not connected")

const (
	// writeSettle is the pause after a parameter write before the next
	// command may be issued; the firmware drops back-to-back commands.
	writeSettle = 50 * time.Millisecond

	// readSettle is the pause after a read request. Reads are answered
	// asynchronously and need more room than writes.
	readSettle = 100 * time.Millisecond

	// keepAliveInterval is how often the editor-mode write is repeated
	// to keep device-side notifications enabled.
	keepAliveInterval = 30 * time.Second

	// pendingTTL bounds how long an unanswered read request stays
	// correlatable before it expires silently.
	pendingTTL = 2000 * time.Millisecond

	// sweepInterval is how often the maintenance loop expires stale
	// pending reads and stalled reassembly buffers.
	sweepInterval = 500 * time.Millisecond
)
