// Package cache keeps recently fetched subreddit listings in Redis so that
// several users watching the same subreddit, or a manual pass run shortly
// after a scheduled one, do not hit Reddit again.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/redis"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "listing:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Lister returns a subreddit's hot listing. *reddit.Client implements it.
type Lister interface {
	Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error)
}

// ListingCache wraps a Lister with a TTL cache. Concurrent misses for the
// same key share one upstream fetch.
type ListingCache struct {
	next    Lister
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache in front of next. A nil store or a non-positive ttl
// disables caching and every call goes straight to next.
func New(next Lister, store Store, ttl time.Duration, m *metrics.Metrics) *ListingCache {
	return &ListingCache{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "listing-cache"),
	}
}

func (c *ListingCache) enabled() bool {
	return c.store != nil && c.ttl > 0
}

// Hot returns the cached listing or fetches and stores it.
func (c *ListingCache) Hot(ctx context.Context, subreddit string, limit int) ([]reddit.Post, error) {
	posts, _, err := c.GetOrFetch(ctx, subreddit, limit)
	return posts, err
}

// GetOrFetch is Hot that also reports whether the listing came from cache.
func (c *ListingCache) GetOrFetch(ctx context.Context, subreddit string, limit int) ([]reddit.Post, bool, error) {
	subreddit = reddit.NormalizeSubreddit(subreddit)
	if !c.enabled() {
		posts, err := c.next.Hot(ctx, subreddit, limit)
		return posts, false, err
	}
	key := buildKey(subreddit, limit)
	if posts, ok := c.get(ctx, key); ok {
		return posts, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		if posts, ok := c.get(ctx, key); ok {
			return posts, nil
		}
		posts, err := c.next.Hot(ctx, subreddit, limit)
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, posts)
		return posts, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]reddit.Post), false, nil
}

func (c *ListingCache) get(ctx context.Context, key string) ([]reddit.Post, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var posts []reddit.Post
	if err := json.Unmarshal([]byte(data), &posts); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.ListingCacheHits.Inc()
	}
	c.logger.Debug("cache hit", "key", key, "posts", len(posts))
	return posts, true
}

func (c *ListingCache) set(ctx context.Context, key string, posts []reddit.Post) {
	data, err := json.Marshal(posts)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

func (c *ListingCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.ListingCacheMisses.Inc()
	}
}

// Invalidate drops every cached listing.
func (c *ListingCache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating listing cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns hit and miss counts since start.
func (c *ListingCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func buildKey(subreddit string, limit int) string {
	return fmt.Sprintf("%s%s:limit=%d", keyPrefix, reddit.NormalizeSubreddit(subreddit), limit)
}
