package socket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefinitionFullLine(t *testing.T) {
	num, def, err := ParseDefinition("3;flag1,flag2;count;total,sum")
	require.NoError(t, err)
	assert.Equal(t, 3, num)
	assert.Equal(t, []string{"flag1", "flag2"}, def.Bit)
	assert.Equal(t, []string{"count"}, def.UInt)
	assert.Equal(t, []string{"total", "sum"}, def.Long)
}

func TestParseDefinitionOmittedFields(t *testing.T) {
	num, def, err := ParseDefinition("1;flag")
	require.NoError(t, err)
	assert.Equal(t, 1, num)
	assert.Equal(t, []string{"flag"}, def.Bit)
	assert.Empty(t, def.UInt)
	assert.Empty(t, def.Long)
}

func TestParseDefinitionInvalidNumber(t *testing.T) {
	_, _, err := ParseDefinition("x;flag")
	assert.Error(t, err)
}
