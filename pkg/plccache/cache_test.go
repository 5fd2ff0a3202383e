package plccache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetValueMissing(t *testing.T) {
	c := NewSinglePlcCache(time.Second, 10*time.Second)
	v := c.GetValue("c1.status")
	assert.Equal(t, ConditionMissing, v.Condition)
	assert.False(t, v.Cached)
}

func TestConditionTransitionsFreshStinkyStale(t *testing.T) {
	c := NewSinglePlcCache(30*time.Millisecond, 60*time.Millisecond)
	c.SetValue("tag", "1", "desc")

	assert.Equal(t, ConditionFresh, c.GetValue("tag").Condition)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, ConditionStinky, c.GetValue("tag").Condition)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, ConditionStale, c.GetValue("tag").Condition)
}

func TestGetOrFetchServesFreshWithoutCallingFetch(t *testing.T) {
	c := NewSinglePlcCache(time.Second, 10*time.Second)
	c.SetValue("tag", "1", "desc")

	called := false
	v, err := c.GetOrFetch(context.Background(), "tag", func(ctx context.Context) (string, string, error) {
		called = true
		return "2", "desc2", nil
	})
	require.NoError(t, err)
	assert.False(t, called)
	assert.Equal(t, "1", v.Value)
}

func TestGetOrFetchFetchesWhenStale(t *testing.T) {
	c := NewSinglePlcCache(time.Millisecond, time.Millisecond)
	c.SetValue("tag", "1", "desc")
	time.Sleep(5 * time.Millisecond)

	v, err := c.GetOrFetch(context.Background(), "tag", func(ctx context.Context) (string, string, error) {
		return "2", "desc2", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "2", v.Value)
	assert.Equal(t, ConditionFresh, c.GetValue("tag").Condition)
}

func TestGetOrFetchCoalescesConcurrentMisses(t *testing.T) {
	c := NewSinglePlcCache(time.Millisecond, time.Millisecond)

	var fetchCount int32
	fetch := func(ctx context.Context) (string, string, error) {
		atomic.AddInt32(&fetchCount, 1)
		time.Sleep(20 * time.Millisecond)
		return "v", "d", nil
	}

	results := make(chan Value, 5)
	for i := 0; i < 5; i++ {
		go func() {
			v, err := c.GetOrFetch(context.Background(), "tag", fetch)
			require.NoError(t, err)
			results <- v
		}()
	}

	for i := 0; i < 5; i++ {
		v := <-results
		assert.Equal(t, "v", v.Value)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetchCount))
}

func TestGetOrFetchPropagatesFetchError(t *testing.T) {
	c := NewSinglePlcCache(time.Millisecond, time.Millisecond)
	_, err := c.GetOrFetch(context.Background(), "tag", func(ctx context.Context) (string, string, error) {
		return "", "", errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, ConditionMissing, c.GetValue("tag").Condition)
}

func TestCleanupEvictsStaleEntries(t *testing.T) {
	c := NewSinglePlcCache(time.Millisecond, time.Millisecond)
	c.SetValue("tag", "1", "desc")
	time.Sleep(5 * time.Millisecond)

	c.Cleanup()
	assert.Equal(t, ConditionMissing, c.GetValue("tag").Condition)
}
