// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package amp

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stagewire/fermata/pkg/blemidi"
	"github.com/stagewire/fermata/pkg/pickup"
	"github.com/stagewire/fermata/pkg/roland"
)

// fakeTransport records writes for inspection
type fakeTransport struct {
	mu      sync.Mutex
	writes  [][]byte
	failErr error
	closed  bool
}

func (f *fakeTransport) Write(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.writes = append(f.writes, cp)
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeTransport) write(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes[i]
}

func (f *fakeTransport) wasClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeClock is a manual clock safe to share with session goroutines
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// recorder captures session events
type recorder struct {
	mu      sync.Mutex
	updates []Update
	logs    []LogEvent
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		Update: func(u Update) {
			r.mu.Lock()
			r.updates = append(r.updates, u)
			r.mu.Unlock()
		},
		Log: func(e LogEvent) {
			r.mu.Lock()
			r.logs = append(r.logs, e)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func (r *recorder) update(i int) Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates[i]
}

func (r *recorder) hasLog(sev Severity, substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.logs {
		if e.Severity == sev && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// newTestSession returns an open session on a manual clock. Sleeps
// advance the clock instead of blocking.
func newTestSession(t *testing.T) (*Session, *fakeTransport, *recorder, *fakeClock) {
	t.Helper()
	tr := &fakeTransport{}
	rec := &recorder{}
	clock := newFakeClock()

	s := New(tr, rec.handlers())
	s.now = clock.Now
	s.sleep = func(d time.Duration) { clock.Advance(d) }

	if err := s.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, tr, rec, clock
}

// respond feeds a wrapped data response into the session
func respond(s *Session, addr roland.Address, value byte) {
	s.HandleFragment(blemidi.Wrap(roland.EncodeWrite(addr, value), 0x80))
}

// ============================================================
// Lifecycle Tests
// ============================================================

func TestSession_OpenEnablesEditorMode(t *testing.T) {
	s, tr, rec, clock := newTestSession(t)

	if !s.Connected() {
		t.Fatal("session not connected after Open")
	}
	if tr.writeCount() != 1 {
		t.Fatalf("expected 1 write on open, got %d", tr.writeCount())
	}

	want := blemidi.Wrap(roland.EncodeWrite(editorModeAddress, editorModeValue),
		blemidi.TimestampByte(clock.Now()))
	if !bytes.Equal(tr.write(0), want) {
		t.Errorf("editor mode write mismatch:\n  got  % X\n  want % X", tr.write(0), want)
	}
	if got := s.Stats().KeepAlives; got != 1 {
		t.Errorf("expected 1 keep-alive, got %d", got)
	}
	if !rec.hasLog(SeveritySuccess, "editor mode") {
		t.Error("missing open log event")
	}
}

func TestSession_OpenTwiceIsNoop(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	if err := s.Open(); err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	if tr.writeCount() != 1 {
		t.Errorf("second Open wrote to the transport: %d writes", tr.writeCount())
	}
}

func TestSession_OpenFailsWhenTransportRejects(t *testing.T) {
	tr := &fakeTransport{failErr: errors.New("gatt timeout")}
	s := New(tr, Handlers{})

	if err := s.Open(); err == nil {
		t.Fatal("expected Open to fail")
	}
	if s.Connected() {
		t.Error("session connected after failed Open")
	}
	if err := s.SetParameter(addrVolume, 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestSession_CloseHardReset(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	// Leave every kind of state dirty
	s.HandleFragment([]byte{0x90, 0x81, blemidi.SysExStart, 0x41, 0x10})
	if err := s.ReadParameter(addrVolume); err != nil {
		t.Fatalf("ReadParameter failed: %v", err)
	}
	guard := pickup.NewController(0)
	guard.Bind(addrVolume.String(), 50, 10)
	s.AttachPickup(guard)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if s.Connected() {
		t.Error("still connected after Close")
	}
	if !tr.wasClosed() {
		t.Error("transport not closed")
	}
	if s.reasm.Buffering() {
		t.Error("reassembly buffer survived Close")
	}
	if s.tracker.outstanding() != 0 {
		t.Error("pending reads survived Close")
	}
	if guard.State().Active {
		t.Error("pickup guard survived Close")
	}
}

func TestSession_CloseTwiceIsNoop(t *testing.T) {
	s, _, _, _ := newTestSession(t)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}

func TestSession_ReopenAfterClose(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	s.HandleFragment([]byte{0x90, 0x81, blemidi.SysExStart, 0x41})
	s.Close()

	if err := s.Open(); err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if !s.Connected() {
		t.Fatal("not connected after reopen")
	}
	if tr.writeCount() != 2 {
		t.Errorf("expected editor mode rewrite on reopen, got %d writes", tr.writeCount())
	}

	// The pre-close partial must not leak into the new session
	s.HandleFragment([]byte{0x10, 0x20, blemidi.SysExEnd})
	if got := s.Stats().MessagesDecoded; got != 0 {
		t.Errorf("stale partial decoded after reopen: %d messages", got)
	}
}

// ============================================================
// Write Path Tests
// ============================================================

func TestSession_SetParameter(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	if err := s.SetParameter(addrVolume, 0x32); err != nil {
		t.Fatalf("SetParameter failed: %v", err)
	}
	if tr.writeCount() != 2 {
		t.Fatalf("expected 2 writes, got %d", tr.writeCount())
	}

	// The wrapped write must survive its own transport framing
	m := roland.Decode(blemidi.NewReassembler().Feed(tr.write(1)))
	if m == nil {
		t.Fatal("outbound write does not reassemble and decode")
	}
	if m.Address != addrVolume || m.Value != 0x32 {
		t.Errorf("expected %s=0x32, got %s=0x%02X", addrVolume, m.Address, m.Value)
	}
	if !m.ChecksumOK {
		t.Error("outbound write has a bad checksum")
	}
	if got := s.Stats().WritesIssued; got != 1 {
		t.Errorf("expected 1 write issued, got %d", got)
	}
}

func TestSession_ReadParameter(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	if err := s.ReadParameter(addrGain); err != nil {
		t.Fatalf("ReadParameter failed: %v", err)
	}

	raw := tr.write(1)
	// Strip transport framing: header, timestamp, start ... timestamp, end
	vendor := raw[3 : len(raw)-2]
	want := roland.EncodeRead(addrGain)
	if !bytes.Equal(vendor, want) {
		t.Errorf("read request mismatch:\n  got  % X\n  want % X", vendor, want)
	}
	if got := s.Stats().ReadsIssued; got != 1 {
		t.Errorf("expected 1 read issued, got %d", got)
	}
	if s.tracker.outstanding() != 1 {
		t.Errorf("expected 1 pending read, got %d", s.tracker.outstanding())
	}
}

func TestSession_WritePacing(t *testing.T) {
	s, _, _, clock := newTestSession(t)

	var sleeps []time.Duration
	s.sleep = func(d time.Duration) {
		sleeps = append(sleeps, d)
		clock.Advance(d)
	}

	if err := s.SetParameter(addrVolume, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.ReadParameter(addrGain); err != nil {
		t.Fatal(err)
	}
	if err := s.SetParameter(addrVolume, 11); err != nil {
		t.Fatal(err)
	}

	// Open's editor write leaves a 50ms settle, the parameter write
	// another 50ms, the read a 100ms one
	want := []time.Duration{50 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
	if len(sleeps) != len(want) {
		t.Fatalf("expected %d settles, got %d (%v)", len(want), len(sleeps), sleeps)
	}
	for i := range want {
		if sleeps[i] != want[i] {
			t.Errorf("settle %d: expected %v, got %v", i, want[i], sleeps[i])
		}
	}
}

func TestSession_WriteWhenNotConnected(t *testing.T) {
	tr := &fakeTransport{}
	s := New(tr, Handlers{})

	if err := s.SetParameter(addrVolume, 1); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before Open, got %v", err)
	}
	if err := s.ReadParameter(addrVolume); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected before Open, got %v", err)
	}
	if tr.writeCount() != 0 {
		t.Errorf("transport touched while disconnected: %d writes", tr.writeCount())
	}
}

func TestSession_WriteFailureReported(t *testing.T) {
	s, tr, rec, _ := newTestSession(t)

	tr.mu.Lock()
	tr.failErr = errors.New("characteristic gone")
	tr.mu.Unlock()

	if err := s.SetParameter(addrVolume, 5); err == nil {
		t.Fatal("expected write failure")
	}
	if !rec.hasLog(SeverityError, "write") {
		t.Error("write failure not logged")
	}
	if got := s.Stats().WritesIssued; got != 0 {
		t.Errorf("failed write counted as issued: %d", got)
	}
}

// ============================================================
// Inbound Classification Tests
// ============================================================

func TestSession_RequestedClassification(t *testing.T) {
	s, _, rec, _ := newTestSession(t)

	if err := s.ReadParameter(addrVolume); err != nil {
		t.Fatal(err)
	}
	respond(s, addrVolume, 0x40)

	if rec.updateCount() != 1 {
		t.Fatalf("expected 1 update, got %d", rec.updateCount())
	}
	u := rec.update(0)
	if u.Address != addrVolume || u.Value != 0x40 || u.Origin != Requested {
		t.Errorf("unexpected update: %+v", u)
	}

	// The pending read is consumed; the same address again is external
	respond(s, addrVolume, 0x41)
	if got := rec.update(1).Origin; got != ExternalChange {
		t.Errorf("expected ExternalChange after consumption, got %v", got)
	}

	st := s.Stats()
	if st.RequestedUpdates != 1 || st.ExternalUpdates != 1 {
		t.Errorf("unexpected counters: requested=%d external=%d", st.RequestedUpdates, st.ExternalUpdates)
	}
}

func TestSession_ExternalClassification(t *testing.T) {
	s, _, rec, _ := newTestSession(t)

	respond(s, addrGain, 0x22)
	if rec.updateCount() != 1 {
		t.Fatalf("expected 1 update, got %d", rec.updateCount())
	}
	if got := rec.update(0).Origin; got != ExternalChange {
		t.Errorf("expected ExternalChange, got %v", got)
	}
}

func TestSession_PendingExpiresToExternal(t *testing.T) {
	s, _, rec, clock := newTestSession(t)

	if err := s.ReadParameter(addrVolume); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2500 * time.Millisecond)
	respond(s, addrVolume, 0x40)

	if got := rec.update(0).Origin; got != ExternalChange {
		t.Errorf("expected ExternalChange for late response, got %v", got)
	}
}

func TestSession_FragmentedResponse(t *testing.T) {
	s, _, rec, _ := newTestSession(t)

	wrapped := blemidi.Wrap(roland.EncodeWrite(addrDelay, 0x15), 0x85)
	s.HandleFragment(wrapped[:4])
	s.HandleFragment(wrapped[4:9])
	s.HandleFragment(wrapped[9:])

	if rec.updateCount() != 1 {
		t.Fatalf("expected 1 update from fragmented response, got %d", rec.updateCount())
	}
	u := rec.update(0)
	if u.Address != addrDelay || u.Value != 0x15 {
		t.Errorf("unexpected update: %+v", u)
	}
}

func TestSession_ForeignTrafficIgnored(t *testing.T) {
	s, _, rec, _ := newTestSession(t)

	foreign := roland.EncodeWrite(addrVolume, 0x10)
	foreign[0] = 0x43 // another manufacturer
	s.HandleFragment(blemidi.Wrap(foreign, 0x80))

	if rec.updateCount() != 0 {
		t.Errorf("foreign message produced %d updates", rec.updateCount())
	}
	st := s.Stats()
	if st.ForeignIgnored != 1 {
		t.Errorf("expected 1 foreign ignored, got %d", st.ForeignIgnored)
	}
	if st.MessagesDecoded != 0 {
		t.Errorf("foreign message counted as decoded: %d", st.MessagesDecoded)
	}
}

func TestSession_ChecksumWarningStillDelivers(t *testing.T) {
	s, _, rec, _ := newTestSession(t)

	data := roland.EncodeWrite(addrVolume, 0x32)
	data[len(data)-1] ^= 0x01
	s.HandleFragment(blemidi.Wrap(data, 0x80))

	if rec.updateCount() != 1 {
		t.Fatalf("checksum mismatch dropped the update")
	}
	if got := rec.update(0).Value; got != 0x32 {
		t.Errorf("expected value 0x32, got 0x%02X", got)
	}
	if !rec.hasLog(SeverityWarning, "checksum") {
		t.Error("checksum mismatch not logged")
	}
	if got := s.Stats().ChecksumErrors; got != 1 {
		t.Errorf("expected 1 checksum error, got %d", got)
	}
}

func TestSession_FragmentsIgnoredWhenClosed(t *testing.T) {
	s, _, rec, _ := newTestSession(t)
	s.Close()

	respond(s, addrVolume, 0x40)
	if rec.updateCount() != 0 {
		t.Errorf("closed session delivered %d updates", rec.updateCount())
	}
}

// ============================================================
// Pickup Integration Tests
// ============================================================

func TestSession_PickupRetarget(t *testing.T) {
	s, _, _, _ := newTestSession(t)

	guard := pickup.NewController(0)
	key := addrVolume.String()
	if !guard.Bind(key, 50, 10) {
		t.Fatal("expected armed binding")
	}
	s.AttachPickup(guard)

	// The device reports a new value for the guarded parameter; the
	// guard must chase it
	respond(s, addrVolume, 20)
	if got := guard.State().Target; got != 20 {
		t.Errorf("expected retarget to 20, got %d", got)
	}
}

func TestSession_KeepAliveRepeatsEditorMode(t *testing.T) {
	s, tr, _, _ := newTestSession(t)

	if err := s.keepAlive(); err != nil {
		t.Fatalf("keepAlive failed: %v", err)
	}
	if got := s.Stats().KeepAlives; got != 2 {
		t.Errorf("expected 2 keep-alives, got %d", got)
	}

	m := roland.Decode(blemidi.NewReassembler().Feed(tr.write(1)))
	if m == nil {
		t.Fatal("keep-alive write does not decode")
	}
	if m.Address != editorModeAddress || m.Value != editorModeValue {
		t.Errorf("unexpected keep-alive payload: %s=0x%02X", m.Address, m.Value)
	}
}
