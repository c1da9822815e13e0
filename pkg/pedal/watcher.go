// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package pedal connects an expression pedal over regular MIDI and
// reports its motion as (previous, position) pairs, which is exactly
// the shape the pickup guard consumes. The watcher handles hot-plug and
// hot-unplug transparently.
package pedal

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// DefaultController is the control change number expression pedals
// conventionally send
const DefaultController uint8 = 11

// preferredPatterns pick a pedal automatically when several inputs are
// present and no explicit device was asked for
var preferredPatterns = []string{"Expression", "Pedal", "EXP"}

// excludedPatterns are virtual/system ports that are never auto-connected
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const rescanInterval = 1000 * time.Millisecond

// Watcher monitors available MIDI inputs and maintains a connection to
// the expression pedal.
//
// onMove is called for every position change of the watched controller
// while a device is connected. onDisconnect is called (from a
// goroutine) when the active device is lost; callers should use it to
// drop any pickup guard immediately.
type Watcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	preferred  string
	controller uint8

	// prevPos and havePrev are touched only by the listener goroutine
	prevPos  int
	havePrev bool
	position atomic.Int32

	onMove       func(previous, position int)
	onDisconnect func()

	log *slog.Logger
}

// NewWatcher creates a watcher and initialises the underlying rtmidi
// driver. preferred narrows device selection to names containing it;
// empty falls back to the built-in patterns. Call Close() when done.
func NewWatcher(preferred string, controller uint8, onMove func(previous, position int), onDisconnect func()) (*Watcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	w := &Watcher{
		drv:          drv,
		preferred:    preferred,
		controller:   controller,
		onMove:       onMove,
		onDisconnect: onDisconnect,
		log:          slog.Default(),
	}
	w.position.Store(-1)
	return w, nil
}

// Close shuts down the active MIDI connection and the rtmidi driver
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	w.drv.Close()
}

// Connected reports whether a pedal is currently attached
func (w *Watcher) Connected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.connected
}

// DeviceName returns the name of the attached input, or "" when none
func (w *Watcher) DeviceName() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName
}

// Position returns the last seen pedal position, or -1 before any event
func (w *Watcher) Position() int {
	return int(w.position.Load())
}

// Tick should be called on a regular interval from the main loop. It
// scans for devices, auto-connects to a matching one, and detects
// disappearances.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < rescanInterval {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		for _, n := range inputs {
			if n == w.selectedName {
				return // still there, nothing to do
			}
		}
		w.log.Warn("pedal: device disappeared", "device", w.selectedName)
		w.closeConn()
		w.lastRescanAt = time.Time{} // rescan immediately next tick
		if w.onDisconnect != nil {
			go w.onDisconnect()
		}
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := w.pickPreferred(inputs)
	if !ok {
		return
	}
	if err := w.openByName(cand); err != nil {
		w.log.Error("pedal: connect failed", "device", cand, "err", err)
	}
}

func (w *Watcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.log.Error("pedal: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pat := range excludedPatterns {
			if containsCI(name, pat) {
				excluded = true
				break
			}
		}
		if excluded {
			w.log.Debug("pedal: input excluded", "device", name)
		} else {
			names = append(names, name)
		}
	}
	w.log.Debug("pedal: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

func (w *Watcher) pickPreferred(inputs []string) (string, bool) {
	if w.preferred != "" {
		for _, name := range inputs {
			if containsCI(name, w.preferred) {
				return name, true
			}
		}
		return "", false
	}
	for _, pat := range preferredPatterns {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	// Fresh connection, no motion history yet
	w.havePrev = false

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, cc, val uint8
		if !msg.GetControlChange(&ch, &cc, &val) {
			return
		}
		if cc != w.controller {
			w.log.Debug("pedal: ignoring controller", "ch", ch, "cc", cc, "value", val)
			return
		}
		w.deliver(int(val))
	}, midi.HandleError(func(listenErr error) {
		w.log.Warn("pedal: listener error", "device", name, "err", listenErr)
		// Must not call closeConn from within the listener goroutine, so
		// we dispatch to a new goroutine and re-acquire the mutex.
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{} // trigger immediate rescan
				if w.onDisconnect != nil {
					go w.onDisconnect()
				}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.log.Info("pedal: connected", "device", name)
	return nil
}

// deliver pairs the new position with the previous one. The first event
// after connecting has no history and pairs with itself.
func (w *Watcher) deliver(pos int) {
	prev := pos
	if w.havePrev {
		prev = w.prevPos
	}
	w.prevPos = pos
	w.havePrev = true
	w.position.Store(int32(pos))

	if w.onMove != nil {
		w.onMove(prev, pos)
	}
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
