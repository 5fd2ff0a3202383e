package abus

import (
	"encoding/binary"
	"fmt"

	"github.com/cybroplc/abus-gateway/internal/crc"
)

// Transport framing constants (spec.md 4.A / 6): little-endian 16-bit
// length and CRC fields, fixed from/to NAD header, a 2-byte transaction id,
// and a maximum frame size enforced across the whole stack.
const (
	HeaderLength        = 6 // from_nad(2) + to_nad(2) + body length(2)
	TransactionIDLength = 2
	CRCLength           = 2
	MaxFrameBytes       = 1000
)

// FramingError signals a malformed or truncated transport frame.
type FramingError struct {
	Reason string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("abus: framing error: %s", e.Reason)
}

// EncodeTransport prepends the transport header and transaction id to body
// and appends a trailing CRC-16 computed over everything preceding it.
func EncodeTransport(fromNad, toNad uint16, transactionID uint16, body []byte) []byte {
	total := HeaderLength + TransactionIDLength + len(body) + CRCLength
	out := make([]byte, total)

	binary.LittleEndian.PutUint16(out[0:2], fromNad)
	binary.LittleEndian.PutUint16(out[2:4], toNad)
	binary.LittleEndian.PutUint16(out[4:6], uint16(len(body)))
	binary.LittleEndian.PutUint16(out[6:8], transactionID)
	copy(out[8:8+len(body)], body)

	checksum := crc.Checksum(out[:8+len(body)])
	binary.LittleEndian.PutUint16(out[8+len(body):], checksum)

	return out
}

// DecodeTransport verifies the trailing CRC and splits the envelope back
// into (from_nad, to_nad, transaction_id, body). Returns a *FramingError on
// truncation or CRC mismatch.
func DecodeTransport(data []byte) (fromNad, toNad uint16, transactionID uint16, body []byte, err error) {
	minLen := HeaderLength + TransactionIDLength + CRCLength
	if len(data) < minLen {
		return 0, 0, 0, nil, &FramingError{Reason: fmt.Sprintf("frame shorter than minimum %d bytes: %d", minLen, len(data))}
	}

	bodyLen := int(binary.LittleEndian.Uint16(data[4:6]))
	expectedLen := HeaderLength + TransactionIDLength + bodyLen + CRCLength
	if len(data) != expectedLen {
		return 0, 0, 0, nil, &FramingError{Reason: fmt.Sprintf("declared body length %d inconsistent with frame size %d", bodyLen, len(data))}
	}

	payloadEnd := 8 + bodyLen
	gotCRC := binary.LittleEndian.Uint16(data[payloadEnd:])
	wantCRC := crc.Checksum(data[:payloadEnd])
	if gotCRC != wantCRC {
		return 0, 0, 0, nil, &FramingError{Reason: fmt.Sprintf("CRC mismatch: got 0x%04x want 0x%04x", gotCRC, wantCRC)}
	}

	fromNad = binary.LittleEndian.Uint16(data[0:2])
	toNad = binary.LittleEndian.Uint16(data[2:4])
	transactionID = binary.LittleEndian.Uint16(data[6:8])
	if bodyLen > 0 {
		body = make([]byte, bodyLen)
		copy(body, data[8:payloadEnd])
	}

	return fromNad, toNad, transactionID, body, nil
}
