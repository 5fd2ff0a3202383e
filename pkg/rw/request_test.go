package rw

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReadsSeparatesByTarget(t *testing.T) {
	requests := []Request{
		{Name: "a", Target: TargetSystem},
		{Name: "b", Target: TargetPlcSystem},
		{Name: "c", Target: TargetPlc},
		{Name: "d", Target: TargetPlc},
	}

	system, plcSystem, plc := classifyReads(requests)
	assert.Len(t, system, 1)
	assert.Len(t, plcSystem, 1)
	assert.Len(t, plc, 2)
}

func TestGroupByNad(t *testing.T) {
	requests := []Request{
		{Name: "a", Nad: 1},
		{Name: "b", Nad: 2},
		{Name: "c", Nad: 1},
	}

	grouped := groupByNad(requests)
	assert.Len(t, grouped[1], 2)
	assert.Len(t, grouped[2], 1)
}
