package datalogger

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybroplc/abus-gateway/pkg/abus"
)

func TestGetOrFetchCachesSuccessfulFetch(t *testing.T) {
	c := NewCache()
	var calls int32

	fetch := func(ctx context.Context) (Entry, error) {
		atomic.AddInt32(&calls, 1)
		return Entry{Frame: abus.CommandFrame{Body: []byte{1}}}, nil
	}

	e1, err := c.GetOrFetch(context.Background(), 5, 100, fetch)
	require.NoError(t, err)
	e2, err := c.GetOrFetch(context.Background(), 5, 100, fetch)
	require.NoError(t, err)

	assert.Equal(t, e1, e2)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetOrFetchDoesNotCacheOnError(t *testing.T) {
	c := NewCache()
	var calls int32

	fetch := func(ctx context.Context) (Entry, error) {
		atomic.AddInt32(&calls, 1)
		return Entry{}, errors.New("boom")
	}

	_, err := c.GetOrFetch(context.Background(), 5, 100, fetch)
	assert.Error(t, err)

	_, err = c.GetOrFetch(context.Background(), 5, 100, fetch)
	assert.Error(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDistinctCrcsAndTasksDoNotCollide(t *testing.T) {
	c := NewCache()
	fetch := func(marker uint8) Fetcher {
		return func(ctx context.Context) (Entry, error) {
			return Entry{Frame: abus.CommandFrame{Body: []byte{marker}}}, nil
		}
	}

	a, err := c.GetOrFetch(context.Background(), 1, 100, fetch(1))
	require.NoError(t, err)
	b, err := c.GetOrFetch(context.Background(), 1, 200, fetch(2))
	require.NoError(t, err)
	d, err := c.GetOrFetch(context.Background(), 2, 100, fetch(3))
	require.NoError(t, err)

	assert.NotEqual(t, a.Frame.Body, b.Frame.Body)
	assert.NotEqual(t, a.Frame.Body, d.Frame.Body)
}

func TestIsEmptyAndClear(t *testing.T) {
	c := NewCache()
	assert.True(t, c.IsEmpty())

	_, err := c.GetOrFetch(context.Background(), 1, 100, func(ctx context.Context) (Entry, error) {
		return Entry{}, nil
	})
	require.NoError(t, err)
	assert.False(t, c.IsEmpty())

	c.Clear()
	assert.True(t, c.IsEmpty())
}

func TestClearTaskOnlyDropsThatTask(t *testing.T) {
	c := NewCache()
	fetchOK := func(ctx context.Context) (Entry, error) { return Entry{}, nil }

	_, err := c.GetOrFetch(context.Background(), 1, 100, fetchOK)
	require.NoError(t, err)
	_, err = c.GetOrFetch(context.Background(), 2, 100, fetchOK)
	require.NoError(t, err)

	c.ClearTask(1)

	var calls int32
	_, err = c.GetOrFetch(context.Background(), 1, 100, func(ctx context.Context) (Entry, error) {
		atomic.AddInt32(&calls, 1)
		return Entry{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "task 1 entry should have been refetched")

	_, err = c.GetOrFetch(context.Background(), 2, 100, func(ctx context.Context) (Entry, error) {
		atomic.AddInt32(&calls, 100)
		return Entry{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "task 2 entry should still be cached")
}
