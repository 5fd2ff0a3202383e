package abus

import "fmt"

// Addr is a UDP-style (ip, port) pair. The CAN sentinel address is
// ("0.0.0.0", 0) — see spec.md's data model for AbusMessage.
type Addr struct {
	IP   string
	Port int
}

// CANSentinel is the address used for messages that travel over CAN rather
// than UDP.
var CANSentinel = Addr{IP: "0.0.0.0", Port: 0}

func (a Addr) String() string {
	return fmt.Sprintf("%s:%d", a.IP, a.Port)
}

// IsCAN reports whether this address is the CAN sentinel.
func (a Addr) IsCAN() bool {
	return a == CANSentinel
}

// Message is an AbusMessage: a decoded command frame, tagged with the
// transport envelope fields and the address it arrived on / should be sent
// to.
type Message struct {
	Addr          Addr
	FromNad       uint16
	ToNad         uint16
	TransactionID uint16
	Command       CommandFrame
}

// Size is the total wire length the message would occupy once encoded —
// used for activity accounting (bytes transferred).
func (m Message) Size() int {
	return HeaderLength + TransactionIDLength + CRCLength + m.Command.Size()
}

// IsPush reports whether this inbound message is an unsolicited push
// announcement: addressed to NAD 0, acknowledged, plain COMMAND type.
func (m Message) IsPush() bool {
	return m.ToNad == 0 &&
		m.Command.Direction == DirectionAcknowledge &&
		m.Command.MsgType == MsgTypeCommand
}

// IsSocket reports whether this inbound message is an unsolicited socket
// event: addressed to NAD 0, acknowledged, any type other than COMMAND.
func (m Message) IsSocket() bool {
	return m.ToNad == 0 &&
		m.Command.Direction == DirectionAcknowledge &&
		m.Command.MsgType != MsgTypeCommand
}

// IsBroadcast reports whether this inbound message is a broadcast:
// addressed to NAD 0, acknowledged, BROADCAST type.
func (m Message) IsBroadcast() bool {
	return m.ToNad == 0 &&
		m.Command.Direction == DirectionAcknowledge &&
		m.Command.MsgType == MsgTypeBroadcast
}

func (m Message) String() string {
	cmd, _ := m.Command.Command()
	return fmt.Sprintf("%s %d -> %d [%d] %s", m.Addr, m.FromNad, m.ToNad, m.TransactionID, cmd)
}

// ToBytes serializes the message into an on-wire transport frame.
func (m Message) ToBytes() []byte {
	return EncodeTransport(m.FromNad, m.ToNad, m.TransactionID, EncodeCommand(m.Command))
}

// FromBytes decodes a transport frame received at addr into a Message.
func FromBytes(data []byte, addr Addr) (Message, error) {
	fromNad, toNad, txID, body, err := DecodeTransport(data)
	if err != nil {
		return Message{}, err
	}
	cmd, err := DecodeCommand(body)
	if err != nil {
		return Message{}, err
	}
	return Message{Addr: addr, FromNad: fromNad, ToNad: toNad, TransactionID: txID, Command: cmd}, nil
}

// ExchangeTag is the (from, to, transaction) triple used to match a
// response to the request that solicited it (spec.md 4.D).
type ExchangeTag struct {
	FromNad       uint16
	ToNad         uint16
	TransactionID uint16
}

// RequestTag extracts the tag a response to this request must reverse.
func (m Message) RequestTag() ExchangeTag {
	return ExchangeTag{FromNad: m.FromNad, ToNad: m.ToNad, TransactionID: m.TransactionID}
}

// ResponseTag extracts the tag this response carries, reversed so it can be
// compared directly against a RequestTag.
func (m Message) ResponseTag() ExchangeTag {
	return ExchangeTag{FromNad: m.ToNad, ToNad: m.FromNad, TransactionID: m.TransactionID}
}
