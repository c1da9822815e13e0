// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

// Package tape records raw transport traffic to a stream and plays it
// back. Captures are a flat sequence of CBOR-encoded frames, compact
// enough to attach to a bug report and replayable through the same
// decode pipeline as live traffic.
package tape

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Frame directions
const (
	DirIn  uint8 = 0 // device to host notification
	DirOut uint8 = 1 // host to device write
)

// Frame is one captured transport fragment
type Frame struct {
	Offset uint32 `cbor:"1,keyasint"` // milliseconds since capture start
	Dir    uint8  `cbor:"2,keyasint"`
	Data   []byte `cbor:"3,keyasint"`
}

// Recorder appends frames to a stream. Safe for concurrent use; inbound
// notifications and outbound writes land on different goroutines.
type Recorder struct {
	mu    sync.Mutex
	enc   *cbor.Encoder
	start time.Time
	count int

	now func() time.Time
}

// NewRecorder creates a recorder writing to w
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{
		enc: cbor.NewEncoder(w),
		now: time.Now,
	}
}

// Record appends one frame. The first frame anchors the capture's time
// axis at offset zero.
func (r *Recorder) Record(dir uint8, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.start.IsZero() {
		r.start = now
	}
	f := Frame{
		Offset: uint32(now.Sub(r.start) / time.Millisecond),
		Dir:    dir,
		Data:   data,
	}
	if err := r.enc.Encode(f); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of frames recorded so far
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Reader iterates the frames of a capture
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader over a capture stream
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next frame, or io.EOF at the end of the capture
func (r *Reader) Next() (Frame, error) {
	var f Frame
	if err := r.dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
