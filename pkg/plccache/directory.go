package plccache

import (
	"sync"
	"time"
)

// Cache is a lazily-populated NAD -> SinglePlcCache map, grounded on
// plc_cache.py's PlcCache.__getitem__: controllers are only ever seen once
// something tries to read from them, so there's no upfront registration
// step.
type Cache struct {
	requestPeriod time.Duration
	validPeriod   time.Duration

	mu    sync.Mutex
	byNad map[int]*SinglePlcCache
}

func NewCache(requestPeriod, validPeriod time.Duration) *Cache {
	return &Cache{
		requestPeriod: requestPeriod,
		validPeriod:   validPeriod,
		byNad:         make(map[int]*SinglePlcCache),
	}
}

// For returns the per-controller cache for nad, creating it on first use.
func (c *Cache) For(nad int) *SinglePlcCache {
	c.mu.Lock()
	defer c.mu.Unlock()

	single, ok := c.byNad[nad]
	if !ok {
		single = NewSinglePlcCache(c.requestPeriod, c.validPeriod)
		c.byNad[nad] = single
	}
	return single
}

// RunCleaner periodically evicts STALE entries from every per-controller
// cache, mirroring plc_cache.py's rx-timer-driven _cleanup. It blocks until
// stop is closed.
func (c *Cache) RunCleaner(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	caches := make([]*SinglePlcCache, 0, len(c.byNad))
	for _, single := range c.byNad {
		caches = append(caches, single)
	}
	c.mu.Unlock()

	for _, single := range caches {
		single.Cleanup()
	}
}
