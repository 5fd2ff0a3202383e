package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
	"github.com/cybroplc/abus-gateway/pkg/detection"
	"github.com/cybroplc/abus-gateway/pkg/directory"
	"github.com/cybroplc/abus-gateway/pkg/exchange"
)

type noopSender struct{}

func (noopSender) Send(addr abus.Addr, frame []byte) error { return nil }

func newTestNadManager(t *testing.T) (*NadManager, *directory.Directory) {
	t.Helper()
	dir := directory.NewDirectory(time.Hour)
	detector := detection.NewService(detection.Config{}, dir) // both transports disabled
	router := exchange.NewRouter(nil, nil)
	activity := directory.NewActivityService()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewNadManager(ctx, dir, detector, activity, router, noopSender{}, 50*time.Millisecond, 0), dir
}

func TestGetReturnsCachedClientForKnownStaticEntry(t *testing.T) {
	nads, dir := newTestNadManager(t)
	dir.PutStatic(5, "10.0.0.5", 8442, nil)

	client, err := nads.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 5, client.Nad())
	assert.True(t, client.HasIP())

	again, err := nads.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Same(t, client, again)
}

func TestGetFailsWhenIPUnknownAndDetectionDisabled(t *testing.T) {
	nads, _ := newTestNadManager(t)

	_, err := nads.Get(context.Background(), 7)
	assert.Error(t, err)
}

func TestRefreshIPForgetsAndReresolves(t *testing.T) {
	nads, dir := newTestNadManager(t)
	dir.PutStatic(5, "10.0.0.5", 8442, nil)

	_, err := nads.Get(context.Background(), 5)
	require.NoError(t, err)

	// A STATIC entry is gone once RefreshIP removes it from the directory
	// outright, so with detection disabled, re-resolution fails.
	_, err = nads.RefreshIP(context.Background(), 5)
	assert.Error(t, err)

	_, ok := dir.Get(5)
	assert.False(t, ok)
}

func TestUpdateProgramDatetimeRebuildsClient(t *testing.T) {
	nads, _ := newTestNadManager(t)
	nads.dir.PutStatic(5, "10.0.0.5", 8442, nil)

	_, err := nads.Get(context.Background(), 5)
	require.NoError(t, err)

	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	client, err := nads.UpdateProgramDatetime(context.Background(), 5, when)
	require.NoError(t, err)

	info := client.PlcInfo()
	require.NotNil(t, info.ProgramDatetime)
	assert.True(t, info.ProgramDatetime.Equal(when))
}
