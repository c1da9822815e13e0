// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package amp

import (
	"time"

	"github.com/stagewire/fermata/pkg/roland"
)

// pendingRead is one outstanding read request awaiting its data response
type pendingRead struct {
	issuedAt time.Time
}

// tracker correlates decoded data responses with the reads this session
// issued. Not goroutine safe; the session's lock guards it.
type tracker struct {
	pending  map[roland.Address]pendingRead
	lastRead time.Time // most recent read issuance across all addresses
}

func newTracker() *tracker {
	return &tracker{pending: make(map[roland.Address]pendingRead)}
}

// registerRead records a read request, superseding any outstanding one
// for the same address
func (t *tracker) registerRead(addr roland.Address, now time.Time) {
	t.pending[addr] = pendingRead{issuedAt: now}
	t.lastRead = now
}

// classify labels a decoded update for addr. A live pending read is
// consumed and the update is Requested; anything else is an external
// change. The returned ambiguous flag is set when an unmatched update
// lands inside the recency window of some other read, where the label
// is a heuristic rather than a certainty.
func (t *tracker) classify(addr roland.Address, now time.Time) (origin Origin, ambiguous bool) {
	if p, ok := t.pending[addr]; ok {
		delete(t.pending, addr)
		if now.Sub(p.issuedAt) <= pendingTTL {
			return Requested, false
		}
		// Expired entry: too old to trust as a match
	}
	ambiguous = !t.lastRead.IsZero() && now.Sub(t.lastRead) <= pendingTTL
	return ExternalChange, ambiguous
}

// expire silently drops pending reads older than pendingTTL and returns
// how many were dropped
func (t *tracker) expire(now time.Time) int {
	n := 0
	for addr, p := range t.pending {
		if now.Sub(p.issuedAt) > pendingTTL {
			delete(t.pending, addr)
			n++
		}
	}
	return n
}

// outstanding reports the number of unanswered reads
func (t *tracker) outstanding() int {
	return len(t.pending)
}

// reset drops all pending state
func (t *tracker) reset() {
	t.pending = make(map[roland.Address]pendingRead)
	t.lastRead = time.Time{}
}
