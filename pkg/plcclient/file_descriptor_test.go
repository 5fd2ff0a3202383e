package plcclient

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFileDescriptor(name string, addr, size uint32) []byte {
	buf := make([]byte, FileDescriptorSize)
	copy(buf[0:8], name)
	binary.LittleEndian.PutUint32(buf[8:12], addr)
	binary.LittleEndian.PutUint32(buf[12:16], size)
	return buf
}

func TestParseFileDescriptorTrimsPadding(t *testing.T) {
	data := encodeFileDescriptor("alc.zip", 0x3000, 256)
	fd, err := ParseFileDescriptor(data)
	require.NoError(t, err)
	assert.Equal(t, "alc.zip", fd.Name)
	assert.Equal(t, uint32(0x3000), fd.Address)
	assert.Equal(t, uint32(256), fd.Size)
}

func TestParseFileDescriptorsAndFindByName(t *testing.T) {
	data := append(
		encodeFileDescriptor("boot.bin", 0x1000, 64),
		encodeFileDescriptor("alc.zip", 0x2000, 512)...,
	)

	descriptors, err := ParseFileDescriptors(data, 2)
	require.NoError(t, err)
	require.Len(t, descriptors, 2)

	fd, ok := FindByName(descriptors, "alc.zip")
	require.True(t, ok)
	assert.Equal(t, uint32(0x2000), fd.Address)

	_, ok = FindByName(descriptors, "missing.bin")
	assert.False(t, ok)
}

func TestParseFileDescriptorsInfo(t *testing.T) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint32(buf[0:4], 0x4000)
	binary.LittleEndian.PutUint16(buf[4:6], 3)

	info, err := ParseFileDescriptorsInfo(buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x4000), info.Address)
	assert.Equal(t, uint16(3), info.Count)
}
