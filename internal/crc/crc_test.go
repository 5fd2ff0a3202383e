package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCcittSingle(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestChecksumMatchesSingleByteByte(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5}

	var c CRC16
	for _, b := range data {
		c.Single(b)
	}

	assert.EqualValues(t, uint16(c), Checksum(data))
}
