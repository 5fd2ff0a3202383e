package httpapi

import (
	"bufio"
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptKeyMatchesRFC6455Example(t *testing.T) {
	// The example key/accept pair from RFC 6455 section 1.3.
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", acceptKey("dGhlIHNhbXBsZSBub25jZQ=="))
}

func TestIsWebSocketUpgradeRequiresBothHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Upgrade", "websocket")
	r.Header.Set("Connection", "Upgrade")
	assert.True(t, isWebSocketUpgrade(r))

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.Header.Set("Upgrade", "websocket")
	assert.False(t, isWebSocketUpgrade(r2))
}

func maskedClientFrame(opcode byte, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(0x80 | opcode)
	buf.WriteByte(0x80 | byte(len(payload)))
	mask := [4]byte{0x11, 0x22, 0x33, 0x44}
	buf.Write(mask[:])
	masked := make([]byte, len(payload))
	for i, b := range payload {
		masked[i] = b ^ mask[i%4]
	}
	buf.Write(masked)
	return buf.Bytes()
}

func TestReadFrameUnmasksClientPayload(t *testing.T) {
	frame := maskedClientFrame(opPing, []byte("hi"))
	reader := bufio.NewReader(bytes.NewReader(frame))

	opcode, payload, err := readFrame(reader)
	require.NoError(t, err)
	assert.Equal(t, byte(opPing), opcode)
	assert.Equal(t, "hi", string(payload))
}

func TestReadFrameRejectsUnmaskedClientFrame(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(0x80 | opText)
	buf.WriteByte(2) // no mask bit set
	buf.WriteString("hi")
	reader := bufio.NewReader(bytes.NewReader(buf.Bytes()))

	_, _, err := readFrame(reader)
	assert.ErrorIs(t, err, errUnmaskedClientFrame)
}

func TestWriteFrameUnmaskedServerFrame(t *testing.T) {
	var out bytes.Buffer
	c := &wsConn{w: bufio.NewWriter(&out)}
	require.NoError(t, c.writeText([]byte("hello")))

	data := out.Bytes()
	require.GreaterOrEqual(t, len(data), 2)
	assert.Equal(t, byte(0x80|opText), data[0])
	assert.Zero(t, data[1]&0x80)
	assert.Equal(t, "hello", string(data[2:]))
}
