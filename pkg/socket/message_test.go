package socket

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/alc"
)

type noAliases struct{}

func (noAliases) ToAliasName(name string) string { return name }

type mapAliases map[string]string

func (m mapAliases) ToAliasName(name string) string {
	if alias, ok := m[name]; ok {
		return alias
	}
	return name
}

func eventBody(bit uint8, u16 uint16, u32 uint32) []byte {
	buf := make([]byte, 7)
	buf[0] = bit
	binary.LittleEndian.PutUint16(buf[1:3], u16)
	binary.LittleEndian.PutUint32(buf[3:7], u32)
	return buf
}

func TestDecodeOrdersBitUintLong(t *testing.T) {
	sockets := Config{
		5: Definition{Bit: []string{"running"}, UInt: []string{"count"}, Long: []string{"total"}},
	}
	msg := abus.Message{
		FromNad: 12,
		Command: abus.CommandFrame{Body: append([]byte{byte(abus.CommandPushAck)}, eventBody(1, 42, 1000)...), MsgType: 5},
	}

	event, err := Decode(msg, map[string]alc.VarInfo{}, sockets)
	require.NoError(t, err)
	require.Len(t, event.Variables, 3)
	assert.Equal(t, "running", event.Variables[0].Name)
	assert.Equal(t, uint32(1), event.Variables[0].Value)
	assert.Equal(t, "count", event.Variables[1].Name)
	assert.Equal(t, uint32(42), event.Variables[1].Value)
	assert.Equal(t, "total", event.Variables[2].Name)
	assert.Equal(t, uint32(1000), event.Variables[2].Value)
}

func TestDecodeUnknownSocketErrors(t *testing.T) {
	msg := abus.Message{Command: abus.CommandFrame{Body: []byte{byte(abus.CommandPushAck)}, MsgType: 9}}
	_, err := Decode(msg, nil, Config{})
	assert.Error(t, err)
}

func TestDecodeTruncatedBodyErrors(t *testing.T) {
	sockets := Config{1: Definition{Long: []string{"total"}}}
	msg := abus.Message{Command: abus.CommandFrame{Body: []byte{byte(abus.CommandPushAck), 1, 2}, MsgType: 1}}
	_, err := Decode(msg, nil, sockets)
	assert.Error(t, err)
}

func TestDecodeFillsDescriptionFromAlc(t *testing.T) {
	sockets := Config{2: Definition{Bit: []string{"flag"}}}
	msg := abus.Message{Command: abus.CommandFrame{Body: []byte{byte(abus.CommandPushAck), 1}, MsgType: 2}}
	vars := map[string]alc.VarInfo{"flag": {Name: "flag", Description: "running flag"}}

	event, err := Decode(msg, vars, sockets)
	require.NoError(t, err)
	require.Len(t, event.Variables, 1)
	assert.True(t, event.Variables[0].HasDesc)
	assert.Equal(t, "running flag", event.Variables[0].Description)
}

func TestToXMLContainsExpectedElements(t *testing.T) {
	msg := Message{Nad: 7, Socket: 1, Variables: []Variable{
		{Name: "flag", Value: 1, Description: "running", HasDesc: true},
		{Name: "count", Value: 42},
	}}

	doc, err := msg.ToXML(noAliases{})
	require.NoError(t, err)
	s := string(doc)
	assert.Contains(t, s, "<event>")
	assert.Contains(t, s, "<name>flag</name>")
	assert.Contains(t, s, "<value>1</value>")
	assert.Contains(t, s, "<description>running</description>")
	assert.Contains(t, s, "<name>count</name>")
	assert.NotContains(t, s, "<description></description>")
}

func TestToXMLUsesAliasName(t *testing.T) {
	msg := Message{Nad: 7, Socket: 1, Variables: []Variable{{Name: "flag", Value: 1}}}
	aliases := mapAliases{"c7.flag": "pump_running"}

	doc, err := msg.ToXML(aliases)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "<name>pump_running</name>")
}
