// Package plcclient implements the PLC client (spec.md 4.I): the
// highest-level per-controller operations (ping, read_head, read/write
// random memory, fetch_alc) built on top of an Exchanger, plus the
// frame-size splitting utility those operations need.
package plcclient

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Controller program magic numbers, carried in plc_head. A plc_head whose
// magic matches neither value fails validation outright (spec.md 4.I.1).
const (
	Cybro2Magic uint16 = 31415
	Cybro3Magic uint16 = 31416
)

// PlcHeadMemorySegment and PlcHeadSize locate and bound the plc_head read,
// grounded on spec.md 4.I.1 (0x46 = 70 bytes at segment 0x0200).
const (
	PlcHeadMemorySegment uint16 = 0x0200
	PlcHeadSize          uint16 = 0x46
)

// FileDescriptorsInfoSegment and FileDescriptorsInfoSize locate the
// (address, count) record pointing at the file descriptor table
// (spec.md 4.I.3: "record size 6: (addr:uint32, count:uint16)").
const (
	FileDescriptorsInfoSegment uint32 = 0x20040
	FileDescriptorsInfoSize    uint16 = 6
)

// PlcHead is the fixed-layout controller header read at segment 0x0200.
// The exact field offsets within the 0x46-byte (70-byte) record are this module's own
// (the wire-format source for plc_head wasn't present in the retrieved
// original, only its invariants per spec.md 4.I.1/4.I.item "Program
// change"); what's load-bearing is the invariant set this type's Validate
// method enforces, not the offsets themselves.
type PlcHead struct {
	Empty             uint16
	Magic             uint16
	FileSystemAddr    uint32
	FileCount         uint16
	CodeCRC           uint32
	ProgramTimestamp  uint32
}

const plcHeadEncodedSize = 2 + 2 + 4 + 2 + 4 + 4 // 18 bytes, padded to PLC_HEAD_SIZE on read

// ParsePlcHead decodes a plc_head record from the bytes returned by a
// READ_CODE_MEMORY_BLOCK at PlcHeadMemorySegment. Trailing bytes beyond the
// fields this type tracks are padding reserved by the controller and are
// ignored.
func ParsePlcHead(data []byte) (PlcHead, error) {
	if len(data) < plcHeadEncodedSize {
		return PlcHead{}, fmt.Errorf("plcclient: plc_head too short: %d bytes", len(data))
	}
	return PlcHead{
		Empty:            binary.LittleEndian.Uint16(data[0:2]),
		Magic:            binary.LittleEndian.Uint16(data[2:4]),
		FileSystemAddr:   binary.LittleEndian.Uint32(data[4:8]),
		FileCount:        binary.LittleEndian.Uint16(data[8:10]),
		CodeCRC:          binary.LittleEndian.Uint32(data[10:14]),
		ProgramTimestamp: binary.LittleEndian.Uint32(data[14:18]),
	}, nil
}

// ProgramDatetime converts the raw unix-epoch program timestamp to a
// time.Time, for storing in the PLC directory.
func (h PlcHead) ProgramDatetime() time.Time {
	return time.Unix(int64(h.ProgramTimestamp), 0).UTC()
}

// Validate enforces spec.md 4.I.1's plc_head invariants: empty must be
// zero, the magic must identify a CYBRO2 or CYBRO3 program, and the file
// system must be non-trivially populated.
func (h PlcHead) Validate() error {
	if h.Empty != 0 {
		return fmt.Errorf("plcclient: plc_head.empty = %d, want 0", h.Empty)
	}
	if h.Magic != Cybro2Magic && h.Magic != Cybro3Magic {
		return fmt.Errorf("plcclient: plc_head.magic = %d, not a recognized program magic", h.Magic)
	}
	if h.FileSystemAddr == 0 {
		return fmt.Errorf("plcclient: plc_head.file_system_addr is zero")
	}
	if h.FileCount == 0 {
		return fmt.Errorf("plcclient: plc_head.file_count is zero")
	}
	return nil
}
