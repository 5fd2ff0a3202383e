// Package socket decodes unsolicited ABUS socket-event frames into XML
// event documents for WebSocket clients (spec.md 4.M).
//
// Grounded on
// original_source/.../local/services/socket_service/socket_message.py
// (SocketMessage.create's per-DataType byte-width decode loop and
// to_xml's <event><var>... document shape) and socket_service.py
// (SocketService.receive/_propagate_socket_message's crc-lookup-then-
// decode-then-broadcast flow).
package socket

import (
	"encoding/binary"
	"encoding/xml"
	"fmt"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/alc"
)

// DataType is the wire width a socket definition declares for one of its
// variables, grounded on eth_config.py's SocketDataType.
type DataType int

const (
	DataTypeBit DataType = iota
	DataTypeUInt
	DataTypeLong
)

func (d DataType) byteSize() int {
	switch d {
	case DataTypeBit:
		return 1
	case DataTypeUInt:
		return 2
	default:
		return 4
	}
}

// Definition is one socket number's variable layout: the tag names packed
// into its event frame, in BIT-then-UINT-then-LONG order (the order the
// controller packs them in, and the order SocketMessage.create iterates
// DATA_TYPE_PROPS in).
type Definition struct {
	Bit  []string
	UInt []string
	Long []string
}

func (d Definition) entries() []struct {
	Type  DataType
	Names []string
} {
	return []struct {
		Type  DataType
		Names []string
	}{
		{DataTypeBit, d.Bit},
		{DataTypeUInt, d.UInt},
		{DataTypeLong, d.Long},
	}
}

// Config maps socket number to its variable layout, grounded on
// eth_config.py's SocketsType.
type Config map[int]Definition

// Variable is one decoded socket-event value.
type Variable struct {
	Name        string
	Value       uint32
	Description string
	HasDesc     bool
}

// Message is one decoded socket event, grounded on SocketMessage.
type Message struct {
	Nad       int
	Socket    int
	Variables []Variable
}

// Decode builds a Message from an inbound ABUS socket frame (spec.md 4.M:
// from_nad identifies the controller, the command frame's msg_type is the
// socket number, and the body is the packed BIT/UINT/LONG variable values
// in the order the socket's Definition declares them).
func Decode(msg abus.Message, vars map[string]alc.VarInfo, sockets Config) (Message, error) {
	socketNum := int(msg.Command.MsgType)
	def, ok := sockets[socketNum]
	if !ok {
		return Message{}, fmt.Errorf("socket: no definition for socket %d", socketNum)
	}

	body := msg.Command.BodyBytes()
	var variables []Variable
	idx := 0

	for _, entry := range def.entries() {
		for _, name := range entry.Names {
			size := entry.Type.byteSize()
			if idx+size > len(body) {
				return Message{}, fmt.Errorf("socket: event body too short for %q: need %d more bytes at offset %d, have %d", name, size, idx, len(body))
			}

			value, err := decodeValue(body[idx:idx+size], entry.Type)
			if err != nil {
				return Message{}, err
			}

			v := Variable{Name: name, Value: value}
			if info, ok := vars[name]; ok {
				v.Description = info.Description
				v.HasDesc = true
			}
			variables = append(variables, v)

			idx += size
		}
	}

	return Message{
		Nad:       int(msg.FromNad),
		Socket:    socketNum,
		Variables: variables,
	}, nil
}

func decodeValue(data []byte, dt DataType) (uint32, error) {
	switch dt {
	case DataTypeBit:
		return uint32(data[0]), nil
	case DataTypeUInt:
		return uint32(binary.LittleEndian.Uint16(data)), nil
	case DataTypeLong:
		return binary.LittleEndian.Uint32(data), nil
	default:
		return 0, fmt.Errorf("socket: unknown data type %d", dt)
	}
}

// AliasResolver renames a fully-qualified tag ("c<nad>.<name>") to its
// configured alias, if any, grounded on lib/services/alias_service.py's
// AliasService.to_alias_name.
type AliasResolver interface {
	ToAliasName(name string) string
}

type xmlEvent struct {
	XMLName xml.Name `xml:"event"`
	Vars    []xmlVar `xml:"var"`
}

type xmlVar struct {
	Name        string `xml:"name"`
	Value       string `xml:"value"`
	Description string `xml:"description,omitempty"`
}

// ToXML serializes the message into the <event><var>... document WebSocket
// clients receive, grounded on SocketMessage.to_xml.
func (m Message) ToXML(aliases AliasResolver) ([]byte, error) {
	doc := xmlEvent{}
	for _, v := range m.Variables {
		qualified := fmt.Sprintf("c%d.%s", m.Nad, v.Name)
		xv := xmlVar{
			Name:  aliases.ToAliasName(qualified),
			Value: fmt.Sprintf("%d", v.Value),
		}
		if v.HasDesc {
			xv.Description = v.Description
		}
		doc.Vars = append(doc.Vars, xv)
	}

	body, err := xml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
