package plcclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/alc"
)

func TestRandomMemoryRoundTrip(t *testing.T) {
	wParams := WParams{
		OneBAddrs:   []uint16{1, 2},
		TwoBAddrs:   []uint16{10},
		FourBAddrs:  []uint16{100, 200},
		OneBValues:  []uint8{7, 9},
		TwoBValues:  []int16{-42},
		FourBValues: []float64{3.5, -7},
		FourTypes:   []alc.DataType{alc.DataTypeReal, alc.DataTypeLong},
	}

	oneBBytes, twoBBytes, fourBBytes, err := packRandomMemoryValues(wParams)
	require.NoError(t, err)

	cmd := abus.NewWriteRandomMemory(
		wParams.OneBAddrs, wParams.TwoBAddrs, wParams.FourBAddrs,
		oneBBytes, twoBBytes, fourBBytes,
	)
	require.NotEmpty(t, cmd.Body)

	// Re-decode as if it were a read response carrying the same values, to
	// exercise the float/int type-branch symmetrically.
	body := append(append(append([]byte(nil), oneBBytes...), twoBBytes...), fourBBytes...)
	oneB, twoB, fourB, err := decodeRandomMemoryResponse(body, len(wParams.OneBValues), len(wParams.TwoBValues), wParams.FourTypes)
	require.NoError(t, err)

	assert.Equal(t, []uint8{7, 9}, oneB)
	assert.Equal(t, []int16{-42}, twoB)
	assert.InDelta(t, 3.5, fourB[0], 0.0001)
	assert.Equal(t, float64(-7), fourB[1])
}

func TestDecodeRandomMemoryResponseTooShort(t *testing.T) {
	_, _, _, err := decodeRandomMemoryResponse([]byte{1, 2}, 1, 1, []alc.DataType{alc.DataTypeLong})
	assert.Error(t, err)
}
