package abus

import "fmt"

// IEX is the CAN framing encapsulation that carries ABUS payloads larger
// than CAN's 8-byte data limit: a run of "stream" frames of exactly 8 bytes
// followed by one "strend" frame holding the 1-8 byte remainder.
//
// The arbitration id is a 29-bit extended CAN id. This package reserves the
// layout below for it: a marker bit identifies the id as carrying ABUS
// IEX traffic at all (so unrelated CAN traffic sharing the bus is ignored),
// and a continuation bit distinguishes "stream" from "strend".
const (
	iexAbusMarkerBit   = uint32(1) << 28
	iexStrendBit       = uint32(1) << 27
	iexAddressMask     = uint32(0x00FFFFFF)
	iexStreamChunkSize = 8
)

// FrameKind distinguishes a stream (continuation) fragment from the
// terminating strend fragment.
type FrameKind uint8

const (
	FrameKindStream FrameKind = iota
	FrameKindStrend
)

// IexFrame is one CAN-sized fragment of an ABUS transport frame.
type IexFrame struct {
	Kind    FrameKind
	Address uint32
	Data    []byte
}

// IsStream reports whether this is a continuation fragment.
func (f IexFrame) IsStream() bool { return f.Kind == FrameKindStream }

// IsStrend reports whether this is the terminating fragment.
func (f IexFrame) IsStrend() bool { return f.Kind == FrameKindStrend }

// ArbitrationID packs the frame kind, abus marker, and address into a CAN
// extended (29-bit) arbitration id.
func (f IexFrame) ArbitrationID() uint32 {
	id := iexAbusMarkerBit | (f.Address & iexAddressMask)
	if f.Kind == FrameKindStrend {
		id |= iexStrendBit
	}
	return id
}

// NewStreamFrame builds an 8-byte continuation fragment.
func NewStreamFrame(address uint32, data []byte) IexFrame {
	if len(data) != iexStreamChunkSize {
		panic(fmt.Sprintf("abus: stream fragment must be exactly %d bytes, got %d", iexStreamChunkSize, len(data)))
	}
	return IexFrame{Kind: FrameKindStream, Address: address, Data: append([]byte(nil), data...)}
}

// NewStrendFrame builds the terminating fragment, 1-8 bytes.
func NewStrendFrame(address uint32, data []byte) IexFrame {
	if len(data) < 1 || len(data) > iexStreamChunkSize {
		panic(fmt.Sprintf("abus: strend fragment must be 1-%d bytes, got %d", iexStreamChunkSize, len(data)))
	}
	return IexFrame{Kind: FrameKindStrend, Address: address, Data: append([]byte(nil), data...)}
}

// DecodeIexFrame reconstructs an IexFrame from a raw CAN arbitration id and
// data payload. isAbus reports false when the id does not carry the abus
// marker bit, in which case the frame should be ignored by the reassembler.
func DecodeIexFrame(arbitrationID uint32, data []byte) (frame IexFrame, isAbus bool) {
	if arbitrationID&iexAbusMarkerBit == 0 {
		return IexFrame{}, false
	}
	kind := FrameKindStream
	if arbitrationID&iexStrendBit != 0 {
		kind = FrameKindStrend
	}
	return IexFrame{
		Kind:    kind,
		Address: arbitrationID & iexAddressMask,
		Data:    append([]byte(nil), data...),
	}, true
}

// SplitToIexFrames fragments an encoded ABUS transport frame into IEX
// frames: 8-byte stream frames followed by a 1-8 byte strend frame holding
// the remainder, per spec.md 4.A.
func SplitToIexFrames(payload []byte, address uint32) []IexFrame {
	var frames []IexFrame
	for len(payload) > iexStreamChunkSize {
		frames = append(frames, NewStreamFrame(address, payload[:iexStreamChunkSize]))
		payload = payload[iexStreamChunkSize:]
	}
	frames = append(frames, NewStrendFrame(address, payload))
	return frames
}

// JoinIexFrames reassembles a complete ABUS transport frame from an ordered
// slice of IEX frames (streams followed by a strend).
func JoinIexFrames(frames []IexFrame) []byte {
	var out []byte
	for _, f := range frames {
		out = append(out, f.Data...)
	}
	return out
}

// IexReassembler accumulates inbound IEX stream frames until a strend
// arrives. A strend on an empty buffer is a complete one-frame message. The
// frame id carries no start marker, so any stream frame that arrives on an
// empty buffer begins a new message: a continuation whose earlier fragments
// were lost is not told apart from a start, and is joined with the frames
// that follow it up to the next strend.
type IexReassembler struct {
	buffer []IexFrame
}

// NewIexReassembler creates an empty reassembler.
func NewIexReassembler() *IexReassembler {
	return &IexReassembler{}
}

// Feed processes one inbound IEX frame. When it completes a message
// (a strend frame arrives), Feed returns the reassembled bytes and true;
// otherwise it returns (nil, false).
func (r *IexReassembler) Feed(frame IexFrame) ([]byte, bool) {
	if len(r.buffer) == 0 && frame.IsStrend() {
		// A lone strend with no preceding stream is a valid one-frame
		// message (payload <= 8 bytes never needed splitting).
		r.buffer = append(r.buffer, frame)
		return r.flush()
	}

	if len(r.buffer) == 0 && !frame.IsStream() {
		return nil, false
	}

	r.buffer = append(r.buffer, frame)

	if frame.IsStrend() {
		return r.flush()
	}

	return nil, false
}

func (r *IexReassembler) flush() ([]byte, bool) {
	data := JoinIexFrames(r.buffer)
	r.buffer = nil
	return data, true
}

// Reset discards any partially-accumulated message.
func (r *IexReassembler) Reset() {
	r.buffer = nil
}
