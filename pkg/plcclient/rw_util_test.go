package plcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/alc"
)

func TestSplitReadFitsWithoutSplitting(t *testing.T) {
	s := Splitter{MaxFrameSize: 1000}
	params := RParams{
		OneB:      []uint16{1, 2, 3},
		TwoB:      []uint16{10, 20},
		FourB:     []uint16{100},
		FourTypes: []alc.DataType{alc.DataTypeReal},
	}

	use, rest := s.SplitRead(params)
	assert.Nil(t, rest)
	assert.Equal(t, params.OneB, use.OneB)
	assert.Equal(t, params.FourTypes, use.FourTypes)
}

func TestSplitReadSplitsOversizedOneBBatch(t *testing.T) {
	s := Splitter{MaxFrameSize: 20}

	oneB := make([]uint16, 50)
	for i := range oneB {
		oneB[i] = uint16(i)
	}

	use, rest := s.SplitRead(RParams{OneB: oneB})
	require.NotNil(t, rest)
	assert.Less(t, len(use.OneB), len(oneB))
	assert.Equal(t, len(oneB), len(use.OneB)+len(rest.OneB))
}

func TestSplitReadRecursivelyCoversEveryAddress(t *testing.T) {
	s := Splitter{MaxFrameSize: 30}

	fourB := make([]uint16, 40)
	fourTypes := make([]alc.DataType, 40)
	for i := range fourB {
		fourB[i] = uint16(i)
		fourTypes[i] = alc.DataTypeReal
	}

	total := 0
	params := RParams{FourB: fourB, FourTypes: fourTypes}
	for {
		use, rest := s.SplitRead(params)
		total += len(use.FourB)
		if rest == nil {
			break
		}
		params = *rest
	}
	assert.Equal(t, len(fourB), total)
}

func TestSplitWriteFitsWithoutSplitting(t *testing.T) {
	s := Splitter{MaxFrameSize: 1000}
	params := WParams{
		OneBAddrs:  []uint16{1},
		OneBValues: []uint8{42},
	}
	use, rest := s.SplitWrite(params)
	assert.Nil(t, rest)
	assert.Equal(t, params.OneBValues, use.OneBValues)
}

func TestSplitWriteSplitsOversizedBatch(t *testing.T) {
	s := Splitter{MaxFrameSize: 15}

	addrs := make([]uint16, 30)
	values := make([]uint8, 30)
	for i := range addrs {
		addrs[i] = uint16(i)
		values[i] = uint8(i)
	}

	use, rest := s.SplitWrite(WParams{OneBAddrs: addrs, OneBValues: values})
	require.NotNil(t, rest)
	assert.Equal(t, len(addrs), len(use.OneBAddrs)+len(rest.OneBAddrs))
	assert.Equal(t, len(use.OneBAddrs), len(use.OneBValues))
}
