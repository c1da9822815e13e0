// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package amp

import (
	"fmt"
	"time"
)

// Stats tracks session traffic counters and rates
type Stats struct {
	StartTime time.Time

	// Counters
	FragmentsReceived uint64
	MessagesDecoded   uint64
	ForeignIgnored    uint64
	ChecksumErrors    uint64
	StalledBuffers    uint64
	RequestedUpdates  uint64
	ExternalUpdates   uint64
	WritesIssued      uint64
	ReadsIssued       uint64
	KeepAlives        uint64

	// Rates (calculated)
	MessageRate float64 // messages/sec
	ErrorRate   float64 // errors/sec
}

// CalculateRates calculates message and error rates
func (s *Stats) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.MessageRate = float64(s.MessagesDecoded) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.StalledBuffers) / elapsed
	}
}

// String returns a formatted statistics summary
func (s Stats) String() string {
	s.CalculateRates()

	var requestedPercent, externalPercent float64
	if s.MessagesDecoded > 0 {
		requestedPercent = float64(s.RequestedUpdates) * 100.0 / float64(s.MessagesDecoded)
		externalPercent = float64(s.ExternalUpdates) * 100.0 / float64(s.MessagesDecoded)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Session Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Fragments Recv:  %8d\n", s.FragmentsReceived)
	result += fmt.Sprintf("Messages:        %8d\n", s.MessagesDecoded)
	result += fmt.Sprintf("  Requested:        %5d (%.1f%%)\n", s.RequestedUpdates, requestedPercent)
	result += fmt.Sprintf("  External:         %5d (%.1f%%)\n", s.ExternalUpdates, externalPercent)

	if s.ForeignIgnored > 0 {
		result += fmt.Sprintf("Foreign Ignored: %8d\n", s.ForeignIgnored)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.StalledBuffers > 0 {
		result += fmt.Sprintf("Stalled Buffers: %8d\n", s.StalledBuffers)
	}

	result += fmt.Sprintf("Writes Issued:   %8d\n", s.WritesIssued)
	result += fmt.Sprintf("Reads Issued:    %8d\n", s.ReadsIssued)
	if s.KeepAlives > 0 {
		result += fmt.Sprintf("Keep-alives:     %8d\n", s.KeepAlives)
	}
	result += fmt.Sprintf("Message Rate:    %8.1f msgs/sec\n", s.MessageRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "=====================================\n"

	return result
}
