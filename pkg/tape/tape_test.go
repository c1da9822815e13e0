// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package tape

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

// ============================================================
// Recorder Tests
// ============================================================

func TestRecorder_OffsetsRelativeToFirstFrame(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	clock := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return clock }

	if err := rec.Record(DirIn, []byte{0x90, 0x80, 0xF0}); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(250 * time.Millisecond)
	if err := rec.Record(DirOut, []byte{0x41, 0x10}); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(1750 * time.Millisecond)
	if err := rec.Record(DirIn, []byte{0xF7}); err != nil {
		t.Fatal(err)
	}

	if rec.Count() != 3 {
		t.Fatalf("expected 3 frames recorded, got %d", rec.Count())
	}

	r := NewReader(&buf)
	wantOffsets := []uint32{0, 250, 2000}
	wantDirs := []uint8{DirIn, DirOut, DirIn}
	for i := range wantOffsets {
		f, err := r.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if f.Offset != wantOffsets[i] {
			t.Errorf("frame %d: expected offset %d, got %d", i, wantOffsets[i], f.Offset)
		}
		if f.Dir != wantDirs[i] {
			t.Errorf("frame %d: expected dir %d, got %d", i, wantDirs[i], f.Dir)
		}
	}
}

func TestRecorder_PreservesData(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)

	frames := [][]byte{
		{0x90, 0x85, 0xF0, 0x41, 0x10},
		{},
		{0x00, 0x7F, 0x80, 0xFF},
	}
	for _, data := range frames {
		if err := rec.Record(DirIn, data); err != nil {
			t.Fatal(err)
		}
	}

	r := NewReader(&buf)
	for i, want := range frames {
		f, err := r.Next()
		if err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if !bytes.Equal(f.Data, want) {
			t.Errorf("frame %d: expected % X, got % X", i, want, f.Data)
		}
	}
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_EOFAtEnd(t *testing.T) {
	var buf bytes.Buffer
	rec := NewRecorder(&buf)
	if err := rec.Record(DirIn, []byte{0x01}); err != nil {
		t.Fatal(err)
	}

	r := NewReader(&buf)
	if _, err := r.Next(); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestReader_EmptyCapture(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF on empty capture, got %v", err)
	}
}

func TestReader_GarbageInput(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
	_, err := r.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("expected a decode error, got %v", err)
	}
}
