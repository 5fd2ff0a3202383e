package plcclient

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FileDescriptorsInfo is the 6-byte record at FileDescriptorsInfoSegment:
// the address of the file descriptor table and how many entries it holds
// (spec.md 4.I.3).
type FileDescriptorsInfo struct {
	Address uint32
	Count   uint16
}

// ParseFileDescriptorsInfo decodes the 6-byte (addr, count) record.
func ParseFileDescriptorsInfo(data []byte) (FileDescriptorsInfo, error) {
	if len(data) < int(FileDescriptorsInfoSize) {
		return FileDescriptorsInfo{}, fmt.Errorf(
			"plcclient: file_descriptors_info too short: %d bytes", len(data))
	}
	return FileDescriptorsInfo{
		Address: binary.LittleEndian.Uint32(data[0:4]),
		Count:   binary.LittleEndian.Uint16(data[4:6]),
	}, nil
}

// FileDescriptorSize is the fixed size of one entry in the file descriptor
// table: an 8-byte name, a 4-byte address, and a 4-byte size.
const FileDescriptorSize = 16

// FileDescriptor names one file in the controller's code-memory file
// system — spec.md 4.I.3 uses this table to locate "alc.zip".
type FileDescriptor struct {
	Name    string
	Address uint32
	Size    uint32
}

// ParseFileDescriptor decodes one fixed-size file descriptor record.
func ParseFileDescriptor(data []byte) (FileDescriptor, error) {
	if len(data) < FileDescriptorSize {
		return FileDescriptor{}, fmt.Errorf(
			"plcclient: file descriptor record too short: %d bytes", len(data))
	}
	name := strings.TrimRight(string(data[0:8]), "\x00")
	return FileDescriptor{
		Name:    name,
		Address: binary.LittleEndian.Uint32(data[8:12]),
		Size:    binary.LittleEndian.Uint32(data[12:16]),
	}, nil
}

// ParseFileDescriptors decodes count consecutive fixed-size records from
// data.
func ParseFileDescriptors(data []byte, count int) ([]FileDescriptor, error) {
	need := count * FileDescriptorSize
	if len(data) < need {
		return nil, fmt.Errorf(
			"plcclient: file descriptor table too short: need %d bytes, have %d", need, len(data))
	}
	out := make([]FileDescriptor, count)
	for i := 0; i < count; i++ {
		fd, err := ParseFileDescriptor(data[i*FileDescriptorSize : (i+1)*FileDescriptorSize])
		if err != nil {
			return nil, err
		}
		out[i] = fd
	}
	return out, nil
}

// FindByName returns the first descriptor named name.
func FindByName(descriptors []FileDescriptor, name string) (FileDescriptor, bool) {
	for _, fd := range descriptors {
		if fd.Name == name {
			return fd, true
		}
	}
	return FileDescriptor{}, false
}
