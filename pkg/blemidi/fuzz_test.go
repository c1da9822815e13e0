// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package blemidi

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 1000
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 1000
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// randomPayload generates 1-20 random 7-bit data bytes
func randomPayload(rng *rand.Rand) []byte {
	payload := make([]byte, rng.Intn(20)+1)
	for i := range payload {
		payload[i] = byte(rng.Intn(128))
	}
	return payload
}

// randomSplit cuts data into 1-8 contiguous fragments
func randomSplit(rng *rand.Rand, data []byte) [][]byte {
	numFragments := rng.Intn(8) + 1
	var fragments [][]byte
	rest := data
	for i := 0; i < numFragments-1 && len(rest) > 1; i++ {
		cut := rng.Intn(len(rest)-1) + 1
		fragments = append(fragments, rest[:cut])
		rest = rest[cut:]
	}
	return append(fragments, rest)
}

// randomTimestamp generates a marker byte that is not structurally
// meaningful (>= 0x80, not start or end)
func randomTimestamp(rng *rand.Rand) byte {
	return byte(0x80 + rng.Intn(0x70))
}

// ============================================================
// Reassembler Fuzz Tests
// ============================================================

// TestFuzzFeed_RandomFragments feeds random byte fragments and verifies
// the reassembler never panics and never grows past its cap
func TestFuzzFeed_RandomFragments(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	r := NewReassembler()
	for i := 0; i < rounds; i++ {
		fragment := make([]byte, rng.Intn(32))
		rng.Read(fragment)
		r.Feed(fragment)

		if len(r.buffer) > MaxMessageSize {
			t.Fatalf("Round %d: buffer grew to %d bytes", i, len(r.buffer))
		}
	}
}

// TestFuzzFeed_FragmentationInvariance verifies that splitting one
// wrapped message at arbitrary boundaries yields exactly one decoded
// message, identical to feeding it unsplit
func TestFuzzFeed_FragmentationInvariance(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := randomPayload(rng)
		wrapped := Wrap(payload, randomTimestamp(rng))

		unsplit := NewReassembler().Feed(wrapped)
		if !bytes.Equal(unsplit, payload) {
			t.Fatalf("Round %d: unsplit feed: expected % X, got % X", i, payload, unsplit)
		}

		r := NewReassembler()
		var completed [][]byte
		for _, fragment := range randomSplit(rng, wrapped) {
			if msg := r.Feed(fragment); msg != nil {
				completed = append(completed, msg)
			}
		}
		if len(completed) != 1 {
			t.Fatalf("Round %d: expected 1 completed message, got %d", i, len(completed))
		}
		if !bytes.Equal(completed[0], payload) {
			t.Errorf("Round %d: expected % X, got % X", i, payload, completed[0])
		}
	}
}

// TestFuzzFeed_InterleavedTimestamps inserts random timestamp bytes
// inside the wrapped body and verifies they never reach the message
func TestFuzzFeed_InterleavedTimestamps(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := randomPayload(rng)
		wrapped := Wrap(payload, randomTimestamp(rng))

		// Insert timestamps between the start and end markers
		body := wrapped[:3:3] // header, ts, start
		for _, b := range wrapped[3 : len(wrapped)-1] {
			if rng.Intn(3) == 0 {
				body = append(body, randomTimestamp(rng))
			}
			body = append(body, b)
		}
		body = append(body, wrapped[len(wrapped)-1])

		r := NewReassembler()
		var got []byte
		for _, fragment := range randomSplit(rng, body) {
			if msg := r.Feed(fragment); msg != nil {
				got = msg
			}
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("Round %d: expected % X, got % X", i, payload, got)
		}
	}
}

// TestFuzzFeed_GarbagePrefix prepends non-structural garbage and
// verifies the message still decodes exactly once
func TestFuzzFeed_GarbagePrefix(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		payload := randomPayload(rng)

		garbage := make([]byte, rng.Intn(16))
		for j := range garbage {
			if rng.Intn(2) == 0 {
				garbage[j] = byte(rng.Intn(128))
			} else {
				garbage[j] = randomTimestamp(rng)
			}
		}

		data := append(garbage, Wrap(payload, randomTimestamp(rng))...)

		r := NewReassembler()
		var completed [][]byte
		for _, fragment := range randomSplit(rng, data) {
			if msg := r.Feed(fragment); msg != nil {
				completed = append(completed, msg)
			}
		}
		if len(completed) != 1 {
			t.Fatalf("Round %d: expected 1 completed message, got %d", i, len(completed))
		}
		if !bytes.Equal(completed[0], payload) {
			t.Errorf("Round %d: expected % X, got % X", i, payload, completed[0])
		}
	}
}

// TestFuzzFeed_BackToBackMessages feeds two wrapped messages, each
// split randomly, and verifies both decode in order
func TestFuzzFeed_BackToBackMessages(t *testing.T) {
	rounds := getFuzzRounds()
	rng := newFuzzRng(t)
	t.Logf("Running %d fuzz rounds", rounds)

	for i := 0; i < rounds; i++ {
		first := randomPayload(rng)
		second := randomPayload(rng)

		r := NewReassembler()
		var completed [][]byte
		for _, payload := range [][]byte{first, second} {
			for _, fragment := range randomSplit(rng, Wrap(payload, randomTimestamp(rng))) {
				if msg := r.Feed(fragment); msg != nil {
					completed = append(completed, msg)
				}
			}
		}
		if len(completed) != 2 {
			t.Fatalf("Round %d: expected 2 completed messages, got %d", i, len(completed))
		}
		if !bytes.Equal(completed[0], first) || !bytes.Equal(completed[1], second) {
			t.Errorf("Round %d: messages mangled:\n  first  % X / % X\n  second % X / % X",
				i, first, completed[0], second, completed[1])
		}
	}
}
