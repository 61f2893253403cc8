// Package cache holds the single-entry memoized view of the active rule set.
package cache

import (
	"context"
	"sync"

	"github.com/solatis/fraudkeeper/internal/rules"
	"github.com/solatis/fraudkeeper/internal/types"
	"golang.org/x/sync/singleflight"
)

// ActiveRuleSource is the read side of the rule store the cache loads from.
type ActiveRuleSource interface {
	FindActiveForRead(ctx context.Context) (*types.StoredRule, error)
}

// Observer receives cache hit/miss signals. Optional.
type Observer interface {
	CacheHit()
	CacheMiss()
}

// ActiveRuleCache memoizes the currently active rule set under a single
// logical key. Invalidate clears the value; the next GetActive repopulates
// lazily. Concurrent misses collapse through singleflight so one backing
// read serves all waiters; the value returned always reflects some state the
// store held at or after the last invalidation. The generation counter
// enforces that: a load that raced an invalidation serves its own waiters
// but is never published as the cached value.
type ActiveRuleCache struct {
	source   ActiveRuleSource
	observer Observer

	mu    sync.RWMutex
	value *types.RuleSet
	gen   uint64

	group singleflight.Group
}

// New creates an empty cache over the given source. observer may be nil.
func New(source ActiveRuleSource, observer Observer) *ActiveRuleCache {
	return &ActiveRuleCache{source: source, observer: observer}
}

// GetActive returns the cached active rule set, loading it from the source
// on a miss. Fails with ErrActiveRuleNotFound when no rule is active.
func (c *ActiveRuleCache) GetActive(ctx context.Context) (*types.RuleSet, error) {
	c.mu.RLock()
	cached := c.value
	c.mu.RUnlock()
	if cached != nil {
		if c.observer != nil {
			c.observer.CacheHit()
		}
		return cached, nil
	}

	if c.observer != nil {
		c.observer.CacheMiss()
	}

	v, err, _ := c.group.Do("active", func() (interface{}, error) {
		// Another waiter may have populated the value while this call
		// queued behind an in-flight load.
		c.mu.RLock()
		current := c.value
		gen := c.gen
		c.mu.RUnlock()
		if current != nil {
			return current, nil
		}

		// The load serves every collapsed waiter, so it must not die with
		// the first caller's request context.
		stored, err := c.source.FindActiveForRead(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return nil, types.ErrActiveRuleNotFound
		}

		ruleSet, err := rules.DecodeRuleSet(stored)
		if err != nil {
			return nil, err
		}

		// Publish only when no invalidation raced the load. A snapshot
		// taken before a mutation committed must not reinstate itself
		// after the post-commit invalidation.
		c.mu.Lock()
		if c.gen == gen {
			c.value = ruleSet
		}
		c.mu.Unlock()
		return ruleSet, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.RuleSet), nil
}

// Invalidate clears the cached value unconditionally. No prefetch: the next
// GetActive repopulates. Called by the lifecycle manager after each
// committed mutation so reads observe their own writes.
func (c *ActiveRuleCache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.gen++
	c.mu.Unlock()
}
