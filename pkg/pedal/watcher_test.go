// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package pedal

import (
	"log/slog"
	"testing"
)

// ============================================================
// Motion Pairing Tests
// ============================================================

func TestDeliver_PairsWithPrevious(t *testing.T) {
	var pairs [][2]int
	w := &Watcher{
		log: slog.Default(),
		onMove: func(prev, pos int) {
			pairs = append(pairs, [2]int{prev, pos})
		},
	}

	w.deliver(40)
	w.deliver(45)
	w.deliver(45)
	w.deliver(20)

	want := [][2]int{{40, 40}, {40, 45}, {45, 45}, {45, 20}}
	if len(pairs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(pairs))
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], pairs[i])
		}
	}
}

func TestDeliver_HistoryDropsOnReconnect(t *testing.T) {
	var pairs [][2]int
	w := &Watcher{
		log: slog.Default(),
		onMove: func(prev, pos int) {
			pairs = append(pairs, [2]int{prev, pos})
		},
	}

	w.deliver(100)
	w.havePrev = false // what openByName does on a fresh connection
	w.deliver(5)

	if pairs[1] != [2]int{5, 5} {
		t.Errorf("first event after reconnect should pair with itself, got %v", pairs[1])
	}
}

func TestPosition(t *testing.T) {
	w := &Watcher{log: slog.Default()}
	w.position.Store(-1)

	if got := w.Position(); got != -1 {
		t.Errorf("expected -1 before any event, got %d", got)
	}
	w.deliver(64)
	if got := w.Position(); got != 64 {
		t.Errorf("expected 64, got %d", got)
	}
}

// ============================================================
// Device Selection Tests
// ============================================================

func TestPickPreferred(t *testing.T) {
	tests := []struct {
		name      string
		preferred string
		inputs    []string
		want      string
		wantOK    bool
	}{
		{
			name:      "explicit preference matches case-insensitively",
			preferred: "fcb1010",
			inputs:    []string{"Launchkey Mini", "FCB1010 MIDI 1"},
			want:      "FCB1010 MIDI 1",
			wantOK:    true,
		},
		{
			name:      "explicit preference absent",
			preferred: "fcb1010",
			inputs:    []string{"Launchkey Mini"},
			wantOK:    false,
		},
		{
			name:   "built-in pattern match",
			inputs: []string{"Launchkey Mini", "USB Expression Pedal"},
			want:   "USB Expression Pedal",
			wantOK: true,
		},
		{
			name:   "single input fallback",
			inputs: []string{"Some Controller"},
			want:   "Some Controller",
			wantOK: true,
		},
		{
			name:   "multiple inputs, no match",
			inputs: []string{"Controller A", "Controller B"},
			wantOK: false,
		},
		{
			name:   "no inputs",
			inputs: nil,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := &Watcher{preferred: tt.preferred, log: slog.Default()}
			got, ok := w.pickPreferred(tt.inputs)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestContainsCI(t *testing.T) {
	if !containsCI("FCB1010 MIDI 1", "fcb") {
		t.Error("expected case-insensitive match")
	}
	if containsCI("Launchkey", "pedal") {
		t.Error("unexpected match")
	}
}
