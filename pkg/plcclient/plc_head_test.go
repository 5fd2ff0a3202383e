package plcclient

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeHead(empty, magic uint16, fsAddr uint32, fileCount uint16, crc, programTS uint32) []byte {
	buf := make([]byte, plcHeadEncodedSize)
	binary.LittleEndian.PutUint16(buf[0:2], empty)
	binary.LittleEndian.PutUint16(buf[2:4], magic)
	binary.LittleEndian.PutUint32(buf[4:8], fsAddr)
	binary.LittleEndian.PutUint16(buf[8:10], fileCount)
	binary.LittleEndian.PutUint32(buf[10:14], crc)
	binary.LittleEndian.PutUint32(buf[14:18], programTS)
	return buf
}

func TestParsePlcHeadValid(t *testing.T) {
	data := encodeHead(0, Cybro3Magic, 0x1000, 3, 0xdeadbeef, 1700000000)
	head, err := ParsePlcHead(data)
	require.NoError(t, err)
	require.NoError(t, head.Validate())
	assert.Equal(t, uint32(0xdeadbeef), head.CodeCRC)
}

func TestValidateRejectsBadMagic(t *testing.T) {
	data := encodeHead(0, 1234, 0x1000, 3, 1, 1)
	head, err := ParsePlcHead(data)
	require.NoError(t, err)
	assert.Error(t, head.Validate())
}

func TestValidateRejectsNonZeroEmpty(t *testing.T) {
	data := encodeHead(1, Cybro2Magic, 0x1000, 3, 1, 1)
	head, err := ParsePlcHead(data)
	require.NoError(t, err)
	assert.Error(t, head.Validate())
}

func TestValidateRejectsZeroFileCount(t *testing.T) {
	data := encodeHead(0, Cybro2Magic, 0x1000, 0, 1, 1)
	head, err := ParsePlcHead(data)
	require.NoError(t, err)
	assert.Error(t, head.Validate())
}

func TestParsePlcHeadTooShort(t *testing.T) {
	_, err := ParsePlcHead([]byte{1, 2, 3})
	assert.Error(t, err)
}
