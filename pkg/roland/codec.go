// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Rhys Calloway, Stagewire

package roland

// Checksum computes the vendor checksum over the address and payload bytes.
// The header and command byte are excluded. The result satisfies
// (sum(address+payload) + checksum) mod 128 == 0.
func Checksum(addr Address, payload []byte) byte {
	sum := 0
	for _, b := range addr {
		sum += int(b)
	}
	for _, b := range payload {
		sum += int(b)
	}
	return byte((checksumBase - sum%checksumBase) % checksumBase)
}

// EncodeWrite builds a DT1 message setting one parameter value.
// The result is the bare vendor message; wrap it for the transport before
// writing (see pkg/blemidi).
func EncodeWrite(addr Address, value byte) []byte {
	msg := make([]byte, 0, WriteSize)
	msg = append(msg, Header[:]...)
	msg = append(msg, CommandDT1)
	msg = append(msg, addr[:]...)
	msg = append(msg, value)
	msg = append(msg, Checksum(addr, []byte{value}))
	return msg
}

// EncodeRead builds an RQ1 message requesting the value at one address.
func EncodeRead(addr Address) []byte {
	msg := make([]byte, 0, ReadSize)
	msg = append(msg, Header[:]...)
	msg = append(msg, CommandRQ1)
	msg = append(msg, addr[:]...)
	msg = append(msg, readRequestSize[:]...)
	msg = append(msg, Checksum(addr, readRequestSize[:]))
	return msg
}

// Decode parses a vendor message. It is total over all byte inputs: anything
// too short, carrying a foreign header, or not a DT1 data message yields nil.
// The shared notification stream routinely carries unrelated traffic, so nil
// is an expected outcome, not an error.
//
// A checksum mismatch does not reject the message; it is reported through
// Message.ChecksumOK so callers can decide their own policy.
func Decode(data []byte) *Message {
	if len(data) < MinSize {
		return nil
	}
	for i := 0; i < HeaderSize; i++ {
		if data[i] != Header[i] {
			return nil
		}
	}

	cmd := data[HeaderSize]
	if cmd != CommandDT1 {
		// RQ1 and unknown commands carry no parameter data to report.
		return nil
	}
	if len(data) < WriteSize {
		return nil
	}

	m := &Message{Command: cmd}
	copy(m.Address[:], data[HeaderSize+1:HeaderSize+1+AddressSize])
	m.Value = data[12]
	m.Checksum = data[13]
	m.ChecksumOK = m.Checksum == Checksum(m.Address, []byte{m.Value})
	return m
}
