// Package plccache implements the per-PLC short-TTL read cache (spec.md
// 4.J): one cache per controller NAD, where each cached tag's freshness
// is judged not just by whether it has expired but by how close it is to
// expiring, so the RW orchestrator can serve a slightly-stale value while
// kicking off a background refresh instead of blocking the caller.
package plccache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Condition classifies a cached value's freshness, grounded on
// single_plc_cache.py's CacheValueCondition: FRESH well before expiry,
// STINKY inside the last request_period before expiry (still usable, but
// due for a refresh), STALE once actually expired.
type Condition int

const (
	ConditionMissing Condition = iota
	ConditionFresh
	ConditionStinky
	ConditionStale
)

// Value is one cached tag read.
type Value struct {
	Value       string
	Description string
	Condition   Condition
	Cached      bool
}

// Fetcher performs the actual (uncached) read for one tag, returning the
// value and description to cache.
type Fetcher func(ctx context.Context) (value, description string, err error)

// SinglePlcCache caches reads for one controller NAD.
type SinglePlcCache struct {
	requestPeriod time.Duration
	validPeriod   time.Duration

	store *gocache.Cache
	group singleflight.Group
}

type item struct {
	value       string
	description string
}

// NewSinglePlcCache creates a cache where entries become STINKY
// requestPeriod before they'd otherwise expire, and are evicted validPeriod
// after being set.
func NewSinglePlcCache(requestPeriod, validPeriod time.Duration) *SinglePlcCache {
	return &SinglePlcCache{
		requestPeriod: requestPeriod,
		validPeriod:   validPeriod,
		store:         gocache.New(validPeriod, validPeriod),
	}
}

// GetValue returns the cached value for name and its current condition.
// ConditionMissing is returned (with a zero Value) when name isn't cached
// at all, which callers treat the same as STALE.
func (c *SinglePlcCache) GetValue(name string) Value {
	raw, expiry, ok := c.store.GetWithExpiration(name)
	if !ok {
		return Value{Condition: ConditionMissing}
	}
	it := raw.(item)
	return Value{
		Value:       it.value,
		Description: it.description,
		Condition:   c.conditionFor(expiry),
		Cached:      true,
	}
}

func (c *SinglePlcCache) conditionFor(expiry time.Time) Condition {
	now := time.Now()
	stinkyTime := expiry.Add(-c.requestPeriod)

	switch {
	case now.Before(stinkyTime):
		return ConditionFresh
	case now.Before(expiry):
		return ConditionStinky
	default:
		return ConditionStale
	}
}

// SetValue installs a freshly-read value, resetting its expiry to
// validPeriod from now.
func (c *SinglePlcCache) SetValue(name, value, description string) {
	c.store.Set(name, item{value: value, description: description}, c.validPeriod)
}

// GetOrFetch serves name from cache when FRESH or STINKY, otherwise calls
// fetch and caches its result — the redesign of start_future/
// get_future_value/cancel_future as a singleflight.Group: concurrent
// misses for the same tag coalesce into one fetch instead of a manually
// managed asyncio Future.
func (c *SinglePlcCache) GetOrFetch(ctx context.Context, name string, fetch Fetcher) (Value, error) {
	cached := c.GetValue(name)
	if cached.Condition == ConditionFresh || cached.Condition == ConditionStinky {
		return cached, nil
	}

	v, err, _ := c.group.Do(name, func() (interface{}, error) {
		value, description, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.SetValue(name, value, description)
		return Value{Value: value, Description: description, Condition: ConditionFresh}, nil
	})
	if err != nil {
		return Value{}, err
	}
	return v.(Value), nil
}

// Cleanup evicts STALE entries eagerly, matching single_plc_cache.py's
// periodic sweep (go-cache's own TTL janitor would evict them anyway, but
// this keeps the STALE-vs-absent distinction explicit for callers that
// need it to match immediately after expiry).
func (c *SinglePlcCache) Cleanup() {
	for name := range c.store.Items() {
		if c.GetValue(name).Condition == ConditionStale {
			c.store.Delete(name)
		}
	}
}
