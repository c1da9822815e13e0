// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package amp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stagewire/fermata/pkg/blemidi"
	"github.com/stagewire/fermata/pkg/pickup"
	"github.com/stagewire/fermata/pkg/roland"
)

// editorModeAddress enables device-side notifications when written with
// editorModeValue. The write is repeated as a keep-alive; the device
// drops out of editor mode if it goes quiet too long.
var editorModeAddress = roland.Address{0x7F, 0x00, 0x00, 0x01}

const editorModeValue byte = 0x01

// Session owns one amplifier connection end to end. Create it with New,
// call Open to enable editor mode and start maintenance, feed inbound
// notifications to HandleFragment, and issue SetParameter/ReadParameter
// from any goroutine; writes are serialized internally.
type Session struct {
	handlers Handlers

	mu        sync.Mutex
	transport Transport
	connected bool
	reasm     *blemidi.Reassembler
	tracker   *tracker
	pickup    *pickup.Controller
	stats     Stats
	done      chan struct{}

	writeMu   sync.Mutex
	nextWrite time.Time

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a session over an already connected transport. Events are
// delivered through h.
func New(tr Transport, h Handlers) *Session {
	return &Session{
		handlers:  h,
		transport: tr,
		reasm:     blemidi.NewReassembler(),
		tracker:   newTracker(),
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// AttachPickup registers the pedal guard so decoded updates to the
// bound parameter retarget it
func (s *Session) AttachPickup(c *pickup.Controller) {
	s.mu.Lock()
	s.pickup = c
	s.mu.Unlock()
}

// Open puts the device in editor mode so it notifies on every parameter
// change, and starts the maintenance loop that repeats the keep-alive
// and expires stale state. Open on an open session is a no-op.
func (s *Session) Open() error {
	s.mu.Lock()
	if s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = true
	s.stats = Stats{StartTime: s.now()}
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	if err := s.keepAlive(); err != nil {
		s.mu.Lock()
		s.connected = false
		s.done = nil
		s.mu.Unlock()
		return fmt.Errorf("enable editor mode: %w", err)
	}

	go s.maintain(done)
	s.logf(SeveritySuccess, "session open, editor mode enabled")
	return nil
}

// Close hard-resets the session: the reassembly buffer, all pending
// reads and any pickup guard are cleared synchronously, then the
// transport is closed. Safe to call on a closed session.
func (s *Session) Close() error {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return nil
	}
	s.connected = false
	close(s.done)
	s.done = nil
	s.reasm.Reset()
	s.tracker.reset()
	pk := s.pickup
	tr := s.transport
	s.mu.Unlock()

	if pk != nil {
		pk.Reset()
	}
	err := tr.Close()
	s.logf(SeverityInfo, "session closed")
	return err
}

// Connected reports whether the session is open
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// SetParameter writes value to the parameter at addr
func (s *Session) SetParameter(addr roland.Address, value byte) error {
	if err := s.write(roland.EncodeWrite(addr, value), writeSettle); err != nil {
		if !errors.Is(err, ErrNotConnected) {
			s.logf(SeverityError, "write %s failed: %v", addr, err)
		}
		return err
	}
	s.mu.Lock()
	s.stats.WritesIssued++
	s.mu.Unlock()
	return nil
}

// ReadParameter asks the device for the current value at addr. The
// response arrives later through HandleFragment as an Update classified
// Requested; if it never arrives the request expires silently.
func (s *Session) ReadParameter(addr roland.Address) error {
	if err := s.write(roland.EncodeRead(addr), readSettle); err != nil {
		if !errors.Is(err, ErrNotConnected) {
			s.logf(SeverityError, "read %s failed: %v", addr, err)
		}
		return err
	}
	s.mu.Lock()
	s.tracker.registerRead(addr, s.now())
	s.stats.ReadsIssued++
	s.mu.Unlock()
	return nil
}

// HandleFragment feeds one raw transport notification into the session.
// Transports call this from their receive callback. Anything that is
// not an addressed data response for this device is silently ignored.
func (s *Session) HandleFragment(fragment []byte) {
	s.mu.Lock()
	if !s.connected {
		s.mu.Unlock()
		return
	}
	s.stats.FragmentsReceived++
	msg := s.reasm.Feed(fragment)
	if msg == nil {
		s.mu.Unlock()
		return
	}
	m := roland.Decode(msg)
	if m == nil {
		s.stats.ForeignIgnored++
		s.mu.Unlock()
		return
	}
	s.stats.MessagesDecoded++
	if !m.ChecksumOK {
		s.stats.ChecksumErrors++
	}
	origin, ambiguous := s.tracker.classify(m.Address, s.now())
	if origin == Requested {
		s.stats.RequestedUpdates++
	} else {
		s.stats.ExternalUpdates++
	}
	pk := s.pickup
	s.mu.Unlock()

	if !m.ChecksumOK {
		s.logf(SeverityWarning, "checksum mismatch on %s (got 0x%02X)", m.Address, m.Checksum)
	}
	if ambiguous {
		s.logf(SeverityInfo, "unmatched update on %s inside read window, treating as external", m.Address)
	}
	if pk != nil {
		pk.Observe(m.Address.String(), int(m.Value))
	}
	if s.handlers.Update != nil {
		s.handlers.Update(Update{Address: m.Address, Value: m.Value, Origin: origin})
	}
}

// Stats returns a copy of the session counters
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// write wraps msg for the transport and sends it, waiting out the
// settling delay left by the previous write. Only one write is ever in
// flight; concurrent callers queue here.
func (s *Session) write(msg []byte, settle time.Duration) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	tr, connected := s.transport, s.connected
	s.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	if wait := s.nextWrite.Sub(s.now()); wait > 0 {
		s.sleep(wait)
	}
	if err := tr.Write(blemidi.Wrap(msg, blemidi.TimestampByte(s.now()))); err != nil {
		return err
	}
	s.nextWrite = s.now().Add(settle)
	return nil
}

// keepAlive repeats the editor-mode write
func (s *Session) keepAlive() error {
	if err := s.write(roland.EncodeWrite(editorModeAddress, editorModeValue), writeSettle); err != nil {
		return err
	}
	s.mu.Lock()
	s.stats.KeepAlives++
	s.mu.Unlock()
	return nil
}

// maintain runs until Close: it repeats the keep-alive and sweeps
// expired pending reads and stalled reassembly buffers
func (s *Session) maintain(done chan struct{}) {
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-done:
			return

		case <-keepAlive.C:
			if err := s.keepAlive(); err != nil && !errors.Is(err, ErrNotConnected) {
				s.logf(SeverityWarning, "keep-alive failed: %v", err)
			}

		case <-sweep.C:
			s.mu.Lock()
			s.tracker.expire(s.now())
			stalled := s.reasm.AbandonStalled()
			if stalled {
				s.stats.StalledBuffers++
			}
			s.mu.Unlock()
			if stalled {
				s.logf(SeverityWarning, "abandoned stalled message buffer")
			}
		}
	}
}

func (s *Session) logf(sev Severity, format string, args ...interface{}) {
	if s.handlers.Log == nil {
		return
	}
	s.handlers.Log(LogEvent{Time: s.now(), Severity: sev, Message: fmt.Sprintf(format, args...)})
}
