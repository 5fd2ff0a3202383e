package directory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutStaticNeverExpires(t *testing.T) {
	d := NewDirectory(10 * time.Millisecond)
	d.PutStatic(5, "10.0.0.5", 8442, nil)

	time.Sleep(30 * time.Millisecond)
	d.sweep()

	p, ok := d.Get(5)
	require.True(t, ok)
	assert.Equal(t, OriginStatic, p.Origin)
}

func TestLearnAutoExpiresAfterLifetime(t *testing.T) {
	d := NewDirectory(10 * time.Millisecond)
	d.Learn(OriginAuto, 7, "10.0.0.7", 8442)

	_, ok := d.Get(7)
	require.True(t, ok)

	time.Sleep(30 * time.Millisecond)
	d.sweep()

	_, ok = d.Get(7)
	assert.False(t, ok)
}

func TestTouchRefreshesExpiry(t *testing.T) {
	d := NewDirectory(30 * time.Millisecond)
	d.Learn(OriginPush, 9, "10.0.0.9", 8442)

	time.Sleep(20 * time.Millisecond)
	d.Touch(9)
	time.Sleep(20 * time.Millisecond)
	d.sweep()

	_, ok := d.Get(9)
	assert.True(t, ok, "touched entry should survive past the original deadline")
}

func TestLearnDoesNotDowngradeStatic(t *testing.T) {
	d := NewDirectory(time.Minute)
	d.PutStatic(3, "10.0.0.3", 8442, nil)
	d.Learn(OriginAuto, 3, "10.0.0.99", 9000)

	p, ok := d.Get(3)
	require.True(t, ok)
	assert.Equal(t, OriginStatic, p.Origin)
	assert.Equal(t, "10.0.0.3", *p.IP)
}

func TestNormalizePortDefaultsUnknownPort(t *testing.T) {
	d := NewDirectory(time.Minute)
	d.PutStatic(1, "10.0.0.1", 0, nil)

	p, ok := d.Get(1)
	require.True(t, ok)
	assert.Equal(t, DefaultPort, p.Port)
}

func TestUpdateProgramDatetime(t *testing.T) {
	d := NewDirectory(time.Minute)
	d.Learn(OriginAuto, 2, "10.0.0.2", 8442)

	when := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.UpdateProgramDatetime(2, when)

	p, ok := d.Get(2)
	require.True(t, ok)
	require.NotNil(t, p.ProgramDatetime)
	assert.True(t, p.ProgramDatetime.Equal(when))
}

func TestRemove(t *testing.T) {
	d := NewDirectory(time.Minute)
	d.PutStatic(4, "10.0.0.4", 8442, nil)
	d.Remove(4)

	_, ok := d.Get(4)
	assert.False(t, ok)
}

func TestAllReturnsSnapshot(t *testing.T) {
	d := NewDirectory(time.Minute)
	d.PutStatic(1, "10.0.0.1", 8442, nil)
	d.PutStatic(2, "10.0.0.2", 8442, nil)

	all := d.All()
	assert.Len(t, all, 2)

	delete(all, 1)
	_, stillThere := d.Get(1)
	assert.True(t, stillThere, "All() must return a copy, not the live map")
}
