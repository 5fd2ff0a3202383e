package alc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAlc = `; comment line should be skipped

0100 02 1 0 2 G INT rtc_sec Seconds counter
0102 03 5 0 1 L BIT flags[] Flag array
0200 10 1 4 4 G REAL temperature Outside temperature
0300 20 1 0 2 G FROB mystery Unknown type falls back
`

func TestParseDeterministic(t *testing.T) {
	first, err := Parse(sampleAlc)
	require.NoError(t, err)
	second, err := Parse(sampleAlc)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestParseScalarEntry(t *testing.T) {
	table, err := Parse(sampleAlc)
	require.NoError(t, err)

	v, ok := table["rtc_sec"]
	require.True(t, ok)
	assert.Equal(t, 0x0100, v.Address)
	assert.Equal(t, 2, v.Size)
	assert.False(t, v.IsArray)
	assert.Equal(t, DataTypeInt, v.DataType)
}

func TestParseArrayExpansion(t *testing.T) {
	table, err := Parse(sampleAlc)
	require.NoError(t, err)

	base := 0x0102
	for i := 0; i < 5; i++ {
		v, ok := table[sprintfName(i)]
		require.True(t, ok, "missing element %d", i)
		assert.Equal(t, base+i*v.Size, v.Address)
		assert.True(t, v.IsArray)
	}
}

func sprintfName(i int) string {
	return "flags[" + itoa(i) + "]"
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	digits := ""
	for i > 0 {
		digits = string(rune('0'+i%10)) + digits
		i /= 10
	}
	return digits
}

func TestParseAddressIncludesOffset(t *testing.T) {
	table, err := Parse(sampleAlc)
	require.NoError(t, err)

	v, ok := table["temperature"]
	require.True(t, ok)
	assert.Equal(t, 0x0200+4, v.Address)
	assert.Equal(t, 4, v.Size)
	assert.Equal(t, DataTypeReal, v.DataType)
}

func TestParseUnknownDataTypeFallsBackToNone(t *testing.T) {
	table, err := Parse(sampleAlc)
	require.NoError(t, err)

	v, ok := table["mystery"]
	require.True(t, ok)
	assert.Equal(t, DataTypeNone, v.DataType)
	assert.Equal(t, 2, v.Size, "declared size kept when data type unknown")
}

func TestIsUserVar(t *testing.T) {
	assert.True(t, VarInfo{ID: 0x02}.IsUserVar())
	assert.True(t, VarInfo{ID: 0x03}.IsUserVar())
	assert.False(t, VarInfo{ID: 0x01}.IsUserVar())
	assert.False(t, VarInfo{ID: 0x00}.IsUserVar())
}
