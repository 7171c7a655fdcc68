// Package relcache memoizes hierarchical relatedness between ontology terms in
// a bounded LRU whose entries also expire after a fixed time-to-live.
package relcache

import (
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/scbrown/semmatch/internal/hierarchy"
	"github.com/scbrown/semmatch/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultSize is the default number of cached pairs.
	DefaultSize = 2000
	// DefaultTTL is how long a cached value stays valid.
	DefaultTTL = time.Hour
)

// Key identifies one cached relatedness value.
type Key struct {
	Target    string
	Source    string
	StopLevel int
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d", k.Target, k.Source, k.StopLevel)
}

// ComputeFunc produces the relatedness of target to source for a stop level.
type ComputeFunc func(target, source model.OntologyTerm, stopLevel int) (float64, error)

// Compute is the default ComputeFunc: hierarchy relatedness when the terms
// are within stopLevel of each other, otherwise 0.
func Compute(target, source model.OntologyTerm, stopLevel int) (float64, error) {
	if !hierarchy.WithinDistance(target, source, stopLevel) {
		return 0, nil
	}
	return hierarchy.Relatedness(target, source), nil
}

type entry struct {
	value  float64
	stored time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Failures  int64 `json:"failures"`
	Size      int   `json:"size"`
}

// Cache is safe for concurrent use. Concurrent misses on the same key share a
// single computation.
type Cache struct {
	entries *lru.Cache[Key, entry]
	ttl     time.Duration
	now     func() time.Time
	compute ComputeFunc
	log     *zap.Logger
	group   singleflight.Group

	hits, misses, evictions, failures atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithCompute replaces the relatedness computation.
func WithCompute(fn ComputeFunc) Option {
	return func(c *Cache) { c.compute = fn }
}

// WithLogger sets the logger used for computation failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithClock overrides the time source used for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a Cache holding at most size entries, each valid for ttl.
// Non-positive arguments fall back to DefaultSize and DefaultTTL.
func New(size int, ttl time.Duration, opts ...Option) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		compute: Compute,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	entries, err := lru.NewWithEvict(size, func(Key, entry) { c.evictions.Add(1) })
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Relatedness returns the cached relatedness of target to source, computing
// and storing it on a miss. Failures are logged and yield 0 without being
// cached.
func (c *Cache) Relatedness(target, source model.OntologyTerm, stopLevel int) float64 {
	key := Key{Target: target.IRI, Source: source.IRI, StopLevel: stopLevel}
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		v, err := c.compute(target, source, stopLevel)
		if err != nil {
			return 0.0, err
		}
		c.entries.Add(key, entry{value: v, stored: c.now()})
		return v, nil
	})
	if err != nil {
		c.failures.Add(1)
		c.log.Warn("relatedness computation failed",
			zap.String("target", target.IRI),
			zap.String("source", source.IRI),
			zap.Int("stop_level", stopLevel),
			zap.Error(err))
		return 0
	}
	return v.(float64)
}

func (c *Cache) lookup(key Key) (float64, bool) {
	e, ok := c.entries.Get(key)
	if !ok {
		return 0, false
	}
	if c.now().Sub(e.stored) >= c.ttl {
		c.entries.Remove(key)
		return 0, false
	}
	return e.value, true
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.entries.Purge()
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Failures:  c.failures.Load(),
		Size:      c.entries.Len(),
	}
}
