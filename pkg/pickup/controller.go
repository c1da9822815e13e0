// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package pickup guards a parameter against value jumps when an
// expression pedal is bound to it. The pedal's physical shaft position
// has no relationship to the parameter's current value, so applying it
// verbatim on bind would cause an audible jump. The controller arms when
// the two disagree, withholds pedal writes while armed, and hands
// control back once the pedal reaches or sweeps across the parameter's
// value.
package pickup

import "sync"

// DefaultThreshold is how close the pedal must come to the target value
// to count as having reached it
const DefaultThreshold = 3

// State is a snapshot of the controller for display
type State struct {
	Active    bool
	Key       string
	Target    int
	Threshold int
}

// Controller is the pickup state machine for a single pedal. Safe for
// concurrent use; pedal motion and parameter updates arrive on
// different goroutines.
type Controller struct {
	mu        sync.Mutex
	threshold int

	active bool
	key    string
	target int
}

// NewController creates an idle controller. A threshold of zero or less
// selects DefaultThreshold.
func NewController(threshold int) *Controller {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Controller{threshold: threshold}
}

// Bind points the pedal at a parameter. Any previous guard is cleared
// unconditionally, then the controller arms if the pedal position and
// the parameter's current value disagree by more than the threshold.
// Returns true when the new binding is armed.
func (c *Controller) Bind(key string, paramValue, pedalPos int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
	if abs(pedalPos-paramValue) > c.threshold {
		c.active = true
		c.key = key
		c.target = paramValue
		return true
	}
	return false
}

// Move processes one pedal motion event for the parameter bound under
// key. It returns the value to write and whether to write at all:
// idle motion passes straight through, armed motion is withheld until
// the pedal lands within the threshold of the target or crosses it
// between two samples. Both exits write the new position and disarm.
func (c *Controller) Move(key string, prev, pos int) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active || c.key != key {
		return pos, true
	}
	if abs(pos-c.target) <= c.threshold {
		c.clear()
		return pos, true
	}
	if (prev-c.target)*(pos-c.target) <= 0 {
		c.clear()
		return pos, true
	}
	return 0, false
}

// Observe feeds a classified parameter update back into the guard. When
// the bound parameter changes underneath an armed controller (front
// panel knob, a requested read completing), the target follows the new
// value so the pedal converges on reality rather than a stale snapshot.
func (c *Controller) Observe(key string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active && c.key == key {
		c.target = value
	}
}

// Reset disarms the controller. Called on disconnect.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clear()
}

// State returns a snapshot for display
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return State{
		Active:    c.active,
		Key:       c.key,
		Target:    c.target,
		Threshold: c.threshold,
	}
}

func (c *Controller) clear() {
	c.active = false
	c.key = ""
	c.target = 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
