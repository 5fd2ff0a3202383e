package abus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		from    uint16
		to      uint16
		tid     uint16
		body    []byte
	}{
		{"empty body", 1003, 10010, 42, nil},
		{"small body", 1, 2, 0xFFFF, []byte{0x01, 0x02, 0x03}},
		{"odd length body", 7, 8, 9, []byte{0xAA}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			encoded := EncodeTransport(c.from, c.to, c.tid, c.body)
			gotFrom, gotTo, gotTID, gotBody, err := DecodeTransport(encoded)
			require.NoError(t, err)
			assert.Equal(t, c.from, gotFrom)
			assert.Equal(t, c.to, gotTo)
			assert.Equal(t, c.tid, gotTID)
			assert.Equal(t, c.body, gotBody)
		})
	}
}

func TestTransportDecodeRejectsTruncated(t *testing.T) {
	encoded := EncodeTransport(1, 2, 3, []byte{0x01, 0x02})
	_, _, _, _, err := DecodeTransport(encoded[:len(encoded)-1])
	require.Error(t, err)
	var fe *FramingError
	assert.ErrorAs(t, err, &fe)
}

func TestTransportDecodeRejectsBadCRC(t *testing.T) {
	encoded := EncodeTransport(1, 2, 3, []byte{0x01, 0x02})
	encoded[len(encoded)-1] ^= 0xFF
	_, _, _, _, err := DecodeTransport(encoded)
	require.Error(t, err)
}

func TestCommandRoundTrip(t *testing.T) {
	frames := []CommandFrame{
		NewPing(),
		NewPushAck(),
		NewReadStatus(),
		NewReadCodeMemoryBlock(0x0200, 46),
		NewReadRandomMemory([]uint16{1, 2, 3}, []uint16{10}, []uint16{100, 200}),
	}

	for _, f := range frames {
		encoded := EncodeCommand(f)
		decoded, err := DecodeCommand(encoded)
		require.NoError(t, err)
		assert.Equal(t, f, decoded)
	}
}

func TestMessageClassification(t *testing.T) {
	push := Message{ToNad: 0, Command: CommandFrame{Direction: DirectionAcknowledge, MsgType: MsgTypeCommand}}
	assert.True(t, push.IsPush())
	assert.False(t, push.IsSocket())
	assert.False(t, push.IsBroadcast())

	socket := Message{ToNad: 0, Command: CommandFrame{Direction: DirectionAcknowledge, MsgType: MsgTypeSocket}}
	assert.True(t, socket.IsSocket())
	assert.False(t, socket.IsPush())

	broadcast := Message{ToNad: 0, Command: CommandFrame{Direction: DirectionAcknowledge, MsgType: MsgTypeBroadcast}}
	assert.True(t, broadcast.IsBroadcast())

	normal := Message{ToNad: 10010, Command: CommandFrame{Direction: DirectionAcknowledge, MsgType: MsgTypeCommand}}
	assert.False(t, normal.IsPush())
	assert.False(t, normal.IsSocket())
	assert.False(t, normal.IsBroadcast())
}

func TestExchangeTagMatching(t *testing.T) {
	req := Message{FromNad: 1003, ToNad: 10010, TransactionID: 77}
	resp := Message{FromNad: 10010, ToNad: 1003, TransactionID: 77}

	assert.Equal(t, req.RequestTag(), resp.ResponseTag())

	mismatched := Message{FromNad: 10010, ToNad: 1003, TransactionID: 78}
	assert.NotEqual(t, req.RequestTag(), mismatched.ResponseTag())
}
