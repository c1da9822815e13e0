// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package amp

import (
	"time"

	"github.com/stagewire/fermata/pkg/roland"
)

// Origin classifies why a parameter value changed
type Origin int

const (
	// Requested means the change answers a read this session issued
	Requested Origin = iota
	// ExternalChange means something else moved the parameter: a front
	// panel knob, a footswitch, another editor
	ExternalChange
)

func (o Origin) String() string {
	switch o {
	case Requested:
		return "requested"
	case ExternalChange:
		return "external"
	default:
		return "unknown"
	}
}

// Update is one classified parameter change decoded from the device
type Update struct {
	Address roland.Address
	Value   byte
	Origin  Origin
}

// Severity tags log events for display
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeveritySuccess
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeveritySuccess:
		return "success"
	default:
		return "info"
	}
}

// LogEvent is one user-visible status line from the session
type LogEvent struct {
	Time     time.Time
	Severity Severity
	Message  string
}

// Handlers receives session events. Nil fields are skipped. Callbacks
// run on the session's goroutines and must not block or call back into
// the session synchronously.
type Handlers struct {
	Update func(Update)
	Log    func(LogEvent)
}
