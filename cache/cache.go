// Package cache keeps built mappers for reuse across reads.
//
// Building a Domain2DMapper costs one coordinate lookup per target cell;
// repeated reads onto the same target grid reuse the sorted mapper. A
// MapperCache is owned by whoever creates it. There is no process-wide
// cache.
package cache

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/sync/singleflight"

	"github.com/scigolib/gridextract/grid"
	"github.com/scigolib/gridextract/mapping"
)

// tracer writes to trace with key 'gridextract.cache'.
func tracer() tracing.Trace {
	return tracing.Select("gridextract.cache")
}

// Policy selects the eviction policy.
type Policy string

// Eviction policies.
const (
	// PolicyLRU evicts the least recently used mapper.
	PolicyLRU Policy = "lru"
	// PolicyTwoQueue keeps frequently used mappers apart from recently
	// added ones, so a scan over many one-off targets does not flush them.
	PolicyTwoQueue Policy = "2q"
)

// ErrInvalidPolicy is returned for an unknown eviction policy.
var ErrInvalidPolicy = errors.New("invalid cache policy")

// ParsePolicy parses "lru" or "2q". The empty string means lru.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyLRU:
		return PolicyLRU, nil
	case PolicyTwoQueue:
		return PolicyTwoQueue, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}

// Key identifies the mapping from source onto target.
func Key(source, target grid.Grid) string {
	return grid.Key(source) + " -> " + grid.Key(target)
}

type store interface {
	Get(key string) (*mapping.Domain2DMapper, bool)
	Len() int
	Purge()
}

// MapperCache is a bounded, concurrency-safe cache of sorted mappers.
type MapperCache struct {
	policy Policy
	cap    int
	store  store
	add    func(key string, m *mapping.Domain2DMapper)
	group  singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
	builds atomic.Int64
}

// Stats counts cache activity.
type Stats struct {
	Hits   int64
	Misses int64
	Builds int64
	Len    int
}

// New returns a cache holding up to capacity mappers.
func New(capacity int, policy Policy) (*MapperCache, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}
	c := &MapperCache{policy: policy, cap: capacity}
	switch policy {
	case PolicyLRU, "":
		l, err := lru.New[string, *mapping.Domain2DMapper](capacity)
		if err != nil {
			return nil, err
		}
		c.policy = PolicyLRU
		c.store = l
		c.add = func(k string, m *mapping.Domain2DMapper) { l.Add(k, m) }
	case PolicyTwoQueue:
		q, err := lru.New2Q[string, *mapping.Domain2DMapper](capacity)
		if err != nil {
			return nil, err
		}
		c.store = q
		c.add = q.Add
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPolicy, policy)
	}
	return c, nil
}

// Policy returns the eviction policy.
func (c *MapperCache) Policy() Policy { return c.policy }

// Capacity returns the maximum number of mappers held.
func (c *MapperCache) Capacity() int { return c.cap }

// Get returns the mapper cached under key.
func (c *MapperCache) Get(key string) (*mapping.Domain2DMapper, bool) {
	m, ok := c.store.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return m, ok
}

// Add caches m under key, evicting per policy when full.
func (c *MapperCache) Add(key string, m *mapping.Domain2DMapper) {
	c.add(key, m)
}

// GetOrBuild returns the cached mapper for key, or calls build once and
// caches its result. Concurrent callers for the same key share one
// build. Build errors are returned to every waiting caller and nothing
// is cached.
func (c *MapperCache) GetOrBuild(key string, build func() (*mapping.Domain2DMapper, error)) (*mapping.Domain2DMapper, error) {
	if m, ok := c.Get(key); ok {
		return m, nil
	}
	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		if m, ok := c.store.Get(key); ok {
			return m, nil
		}
		m, err := build()
		if err != nil {
			return nil, err
		}
		c.builds.Add(1)
		c.add(key, m)
		tracer().Debugf("cache: built mapper for %s (%d pairs)", key, m.Len())
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		tracer().Debugf("cache: shared build for %s", key)
	}
	return v.(*mapping.Domain2DMapper), nil
}

// Len returns the number of cached mappers.
func (c *MapperCache) Len() int { return c.store.Len() }

// Purge drops every cached mapper.
func (c *MapperCache) Purge() { c.store.Purge() }

// Stats returns the activity counters.
func (c *MapperCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Builds: c.builds.Load(),
		Len:    c.store.Len(),
	}
}
