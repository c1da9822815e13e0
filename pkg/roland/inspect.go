// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package roland

import "fmt"

// AnomalyType classifies why a byte sequence is not a clean DT1 message
type AnomalyType int

const (
	AnomalyShort AnomalyType = iota
	AnomalyForeignHeader
	AnomalyUnknownCommand
	AnomalyTruncated
	AnomalyChecksumMismatch
)

// ValidationError describes one anomaly found in a received message
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateMessage inspects a reassembled byte sequence and reports every
// anomaly it finds. It never rejects: the session's decode path stays
// permissive and this is the diagnostic view of the same bytes, used by the
// monitor command to count what the permissive path skips over.
// Returns an empty slice for a clean DT1 message.
func ValidateMessage(data []byte) []ValidationError {
	errors := []ValidationError{}

	if len(data) < MinSize {
		return append(errors, ValidationError{
			Type:    AnomalyShort,
			Message: fmt.Sprintf("message too short: %d bytes (min %d)", len(data), MinSize),
			Details: map[string]interface{}{"length": len(data), "min": MinSize},
		})
	}

	for i := 0; i < HeaderSize; i++ {
		if data[i] != Header[i] {
			return append(errors, ValidationError{
				Type:    AnomalyForeignHeader,
				Message: fmt.Sprintf("foreign header byte at offset %d: 0x%02X (expected 0x%02X)", i, data[i], Header[i]),
				Details: map[string]interface{}{"offset": i, "got": data[i], "expected": Header[i]},
			})
		}
	}

	cmd := data[HeaderSize]
	switch cmd {
	case CommandDT1:
		if len(data) < WriteSize {
			return append(errors, ValidationError{
				Type:    AnomalyTruncated,
				Message: fmt.Sprintf("DT1 truncated: %d bytes (want %d)", len(data), WriteSize),
				Details: map[string]interface{}{"length": len(data), "expected": WriteSize},
			})
		}
		var addr Address
		copy(addr[:], data[HeaderSize+1:HeaderSize+1+AddressSize])
		expected := Checksum(addr, []byte{data[12]})
		if data[13] != expected {
			errors = append(errors, ValidationError{
				Type:    AnomalyChecksumMismatch,
				Message: fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", expected, data[13]),
				Details: map[string]interface{}{"expected": expected, "got": data[13], "address": addr.String()},
			})
		}
	case CommandRQ1:
		if len(data) < ReadSize {
			return append(errors, ValidationError{
				Type:    AnomalyTruncated,
				Message: fmt.Sprintf("RQ1 truncated: %d bytes (want %d)", len(data), ReadSize),
				Details: map[string]interface{}{"length": len(data), "expected": ReadSize},
			})
		}
		var addr Address
		copy(addr[:], data[HeaderSize+1:HeaderSize+1+AddressSize])
		expected := Checksum(addr, data[12:16])
		if data[16] != expected {
			errors = append(errors, ValidationError{
				Type:    AnomalyChecksumMismatch,
				Message: fmt.Sprintf("checksum mismatch: expected 0x%02X, got 0x%02X", expected, data[16]),
				Details: map[string]interface{}{"expected": expected, "got": data[16], "address": addr.String()},
			})
		}
	default:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("unknown command 0x%02X", cmd),
			Details: map[string]interface{}{"command": cmd},
		})
	}

	return errors
}
