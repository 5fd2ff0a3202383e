package rw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/alc"
)

func sampleVars() map[string]alc.VarInfo {
	return map[string]alc.VarInfo{
		"flag":  {Name: "flag", Address: 0x10, Size: 1, DataType: alc.DataTypeBit},
		"count": {Name: "count", Address: 0x20, Size: 2, DataType: alc.DataTypeInt},
		"temp":  {Name: "temp", Address: 0x30, Size: 4, DataType: alc.DataTypeReal, Description: "deg C"},
		"total": {Name: "total", Address: 0x40, Size: 4, DataType: alc.DataTypeLong},
	}
}

func TestBuildReadParamsGroupsByWidthAndReportsUnresolved(t *testing.T) {
	requests := []Request{
		{Name: "flag", TagName: "flag"},
		{Name: "count", TagName: "count"},
		{Name: "temp", TagName: "temp"},
		{Name: "missing", TagName: "missing"},
	}

	params, order, unresolved := buildReadParams(requests, sampleVars())

	assert.Equal(t, []uint16{0x10}, params.OneB)
	assert.Equal(t, []uint16{0x20}, params.TwoB)
	assert.Equal(t, []uint16{0x30}, params.FourB)
	assert.Equal(t, []alc.DataType{alc.DataTypeReal}, params.FourTypes)
	assert.Len(t, order, 3)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "missing", unresolved[0].Name)
}

func TestDecodeReadResponsesFormatsRealAndInteger(t *testing.T) {
	requests := []Request{{Name: "temp", TagName: "temp"}, {Name: "total", TagName: "total"}}
	_, order, _ := buildReadParams(requests, sampleVars())

	responses := decodeReadResponses(order, nil, nil, []float64{3.5, 42}, false)
	require.Len(t, responses, 2)
	assert.Equal(t, "3.5", responses[0].Value)
	assert.Equal(t, "deg C", responses[0].Description)
	assert.Equal(t, "42", responses[1].Value)
	assert.Equal(t, CodeNoError, responses[0].Code)
}

func TestBuildWriteParamsParsesTypedValues(t *testing.T) {
	requests := []Request{
		{Name: "flag", TagName: "flag", Value: "1"},
		{Name: "count", TagName: "count", Value: "-7"},
		{Name: "temp", TagName: "temp", Value: "21.5"},
	}

	params, unresolved, err := buildWriteParams(requests, sampleVars())
	require.NoError(t, err)
	assert.Empty(t, unresolved)
	assert.Equal(t, []uint8{1}, params.OneBValues)
	assert.Equal(t, []int16{-7}, params.TwoBValues)
	assert.InDelta(t, 21.5, params.FourBValues[0], 0.001)
}

func TestBuildWriteParamsErrorsOnUnparsableValue(t *testing.T) {
	requests := []Request{{Name: "count", TagName: "count", Value: "not-a-number"}}
	_, _, err := buildWriteParams(requests, sampleVars())
	assert.Error(t, err)
}
