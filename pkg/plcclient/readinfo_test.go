package plcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReadInfoWithinOneSegment(t *testing.T) {
	segs := generateReadInfo(0x0200, 0x46)
	if assert.Len(t, segs, 1) {
		assert.Equal(t, uint32(2), segs[0].segmentNumber)
		assert.Equal(t, uint32(0), segs[0].offset)
		assert.Equal(t, uint32(0x46), segs[0].size)
	}
}

func TestGenerateReadInfoSpansMultipleSegments(t *testing.T) {
	segs := generateReadInfo(0x00F0, 0x20)
	a := assert.New(t)
	a.True(len(segs) >= 2)

	total := uint32(0)
	for _, s := range segs {
		total += s.size
	}
	assert.Equal(t, uint32(0x20), total)
}
