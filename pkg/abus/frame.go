// Package abus implements the ABUS wire protocol: command frames, the
// transport envelope (header + CRC trailer), message classification and the
// IEX fragmentation used to carry ABUS payloads over CAN.
//
// Encoding/decoding in this package is pure and synchronous — it performs no
// I/O, matching the teacher's frame-codec split (samsamfire/gocanopen keeps
// SDO command encoding free of the bus it eventually travels over).
package abus

import (
	"encoding/binary"
	"fmt"
)

// Direction is carried in the lowest bit of a CommandFrame's head.
type Direction uint8

const (
	DirectionRequest      Direction = 0
	DirectionAcknowledge  Direction = 1
)

// MsgType further qualifies an acknowledged frame: a plain COMMAND ack, an
// unsolicited BROADCAST, or a SOCKET push carrying application payload.
type MsgType uint16

const (
	MsgTypeCommand   MsgType = 0
	MsgTypeBroadcast MsgType = 1
	MsgTypeSocket    MsgType = 2
)

// Command identifies the operation encoded in a CommandFrame's first body
// byte.
type Command uint8

const (
	CommandPing                Command = 0x01
	CommandPushAck             Command = 0x02
	CommandReadCodeMemoryBlock Command = 0x10
	CommandReadStatus          Command = 0x11
	CommandReadRandomMemory    Command = 0x20
	CommandWriteRandomMemory   Command = 0x21
)

func (c Command) String() string {
	switch c {
	case CommandPing:
		return "PING"
	case CommandPushAck:
		return "PUSH_ACK"
	case CommandReadCodeMemoryBlock:
		return "READ_CODE_MEMORY_BLOCK"
	case CommandReadStatus:
		return "READ_STATUS"
	case CommandReadRandomMemory:
		return "READ_RANDOM_MEMORY"
	case CommandWriteRandomMemory:
		return "WRITE_RANDOM_MEMORY"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02x)", uint8(c))
	}
}

// HeadLength and CommandLength bound the command-frame overhead accounted
// for by the frame splitter (spec.md 4.I item 6).
const (
	HeadLength    = 2
	CommandLength = 1
)

// CommandFrame is the pair (head, body) described in spec.md's data model.
// Direction and MsgType live in head; the command code is body[0].
type CommandFrame struct {
	Direction Direction
	MsgType   MsgType
	Body      []byte
}

// Command returns the command code encoded as body[0], or an error if the
// body is empty.
func (f CommandFrame) Command() (Command, error) {
	if len(f.Body) == 0 {
		return 0, fmt.Errorf("abus: command frame has empty body")
	}
	return Command(f.Body[0]), nil
}

// BodyBytes returns everything in the body after the command byte.
func (f CommandFrame) BodyBytes() []byte {
	if len(f.Body) <= 1 {
		return nil
	}
	return f.Body[1:]
}

// Size is the wire length of the encoded command frame (head + body).
func (f CommandFrame) Size() int {
	return HeadLength + len(f.Body)
}

func packHead(dir Direction, msgType MsgType) uint16 {
	head := uint16(msgType) << 1
	if dir == DirectionAcknowledge {
		head |= 1
	}
	return head
}

func unpackHead(head uint16) (Direction, MsgType) {
	dir := Direction(head & 0x1)
	msgType := MsgType(head >> 1)
	return dir, msgType
}

// EncodeCommand serializes a CommandFrame to bytes: 2-byte little-endian
// head followed by the raw body (command byte + payload).
func EncodeCommand(f CommandFrame) []byte {
	out := make([]byte, HeadLength+len(f.Body))
	binary.LittleEndian.PutUint16(out, packHead(f.Direction, f.MsgType))
	copy(out[HeadLength:], f.Body)
	return out
}

// DecodeCommand parses bytes produced by EncodeCommand.
func DecodeCommand(data []byte) (CommandFrame, error) {
	if len(data) < HeadLength {
		return CommandFrame{}, fmt.Errorf("abus: command frame too short: %d bytes", len(data))
	}
	head := binary.LittleEndian.Uint16(data[:HeadLength])
	dir, msgType := unpackHead(head)
	body := make([]byte, len(data)-HeadLength)
	copy(body, data[HeadLength:])
	return CommandFrame{Direction: dir, MsgType: msgType, Body: body}, nil
}

// NewRequest builds a REQ/COMMAND frame for the given command code and
// payload (the payload following the command byte).
func NewRequest(cmd Command, payload []byte) CommandFrame {
	body := make([]byte, 1+len(payload))
	body[0] = byte(cmd)
	copy(body[1:], payload)
	return CommandFrame{Direction: DirectionRequest, MsgType: MsgTypeCommand, Body: body}
}

// NewAcknowledge builds an ACK/COMMAND frame — the normal shape of a
// successful response to a request.
func NewAcknowledge(cmd Command, payload []byte) CommandFrame {
	body := make([]byte, 1+len(payload))
	body[0] = byte(cmd)
	copy(body[1:], payload)
	return CommandFrame{Direction: DirectionAcknowledge, MsgType: MsgTypeCommand, Body: body}
}

// NewPing builds a PING request frame.
func NewPing() CommandFrame {
	return NewRequest(CommandPing, nil)
}

// NewPushAck builds a PUSH_ACK request frame.
func NewPushAck() CommandFrame {
	return NewRequest(CommandPushAck, nil)
}

// NewReadCodeMemoryBlock builds a READ_CODE_MEMORY_BLOCK request for the
// given segment number and byte count.
func NewReadCodeMemoryBlock(segment uint16, size uint16) CommandFrame {
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint16(payload[0:2], segment)
	binary.LittleEndian.PutUint16(payload[2:4], size)
	return NewRequest(CommandReadCodeMemoryBlock, payload)
}

// NewReadStatus builds a READ_STATUS request.
func NewReadStatus() CommandFrame {
	return NewRequest(CommandReadStatus, nil)
}

// NewReadRandomMemory packs three address lists (1-byte, 2-byte, 4-byte
// sized variables) into a READ_RANDOM_MEMORY request, per spec.md 4.I
// item 5: counts up front so the controller knows how to size its reply.
func NewReadRandomMemory(oneB, twoB, fourB []uint16) CommandFrame {
	payload := make([]byte, 0, 6+2*(len(oneB)+len(twoB)+len(fourB)))
	payload = appendCountAndAddrs(payload, oneB)
	payload = appendCountAndAddrs(payload, twoB)
	payload = appendCountAndAddrs(payload, fourB)
	return NewRequest(CommandReadRandomMemory, payload)
}

func appendCountAndAddrs(dst []byte, addrs []uint16) []byte {
	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(addrs)))
	dst = append(dst, countBuf[:]...)
	for _, a := range addrs {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], a)
		dst = append(dst, b[:]...)
	}
	return dst
}

// NewWriteRandomMemory builds a WRITE_RANDOM_MEMORY request: three address
// lists followed by their already-packed little-endian value bytes
// (1 byte/addr, 2 bytes/addr, 4 bytes/addr).
func NewWriteRandomMemory(oneB, twoB, fourB []uint16, oneBValues, twoBValues, fourBValues []byte) CommandFrame {
	payload := make([]byte, 0, 6+2*(len(oneB)+len(twoB)+len(fourB))+len(oneBValues)+len(twoBValues)+len(fourBValues))
	payload = appendCountAndAddrs(payload, oneB)
	payload = appendCountAndAddrs(payload, twoB)
	payload = appendCountAndAddrs(payload, fourB)
	payload = append(payload, oneBValues...)
	payload = append(payload, twoBValues...)
	payload = append(payload, fourBValues...)
	return NewRequest(CommandWriteRandomMemory, payload)
}
