package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/mention-monitor/internal/reddit"
	"github.com/Adithya-Monish-Kumar-K/mention-monitor/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: make(map[string]string)} }

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		s.data[key] = string(v)
	case string:
		s.data[key] = v
	default:
		return errors.New("unsupported value")
	}
	return nil
}

func (s *memStore) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	var n int64
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

type countingLister struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (l *countingLister) Hot(_ context.Context, subreddit string, _ int) ([]reddit.Post, error) {
	l.calls.Add(1)
	time.Sleep(l.delay)
	if l.err != nil {
		return nil, l.err
	}
	return []reddit.Post{{ID: "1", Title: "hello " + subreddit, Permalink: "/r/" + subreddit + "/1"}}, nil
}

func TestGetOrFetchCachesListing(t *testing.T) {
	next := &countingLister{}
	m := metrics.New()
	c := New(next, newMemStore(), time.Minute, m)
	ctx := context.Background()

	posts, cached, err := c.GetOrFetch(ctx, "r/Seattle", 25)
	require.NoError(t, err)
	assert.False(t, cached)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello seattle", posts[0].Title, "upstream gets the normalized name")

	posts, cached, err = c.GetOrFetch(ctx, "seattle", 25)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, "hello seattle", posts[0].Title)
	assert.EqualValues(t, 1, next.calls.Load())

	_, cached, err = c.GetOrFetch(ctx, "seattle", 10)
	require.NoError(t, err)
	assert.False(t, cached, "limit is part of the key")

	hits, _ := c.Stats()
	assert.EqualValues(t, 1, hits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ListingCacheHits))
}

func TestConcurrentMissesShareFetch(t *testing.T) {
	next := &countingLister{delay: 50 * time.Millisecond}
	c := New(next, newMemStore(), time.Minute, nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Hot(context.Background(), "coffee", 25)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestErrorsAreNotCached(t *testing.T) {
	next := &countingLister{err: errors.New("upstream down")}
	c := New(next, newMemStore(), time.Minute, nil)

	_, err := c.Hot(context.Background(), "coffee", 25)
	require.Error(t, err)
	_, err = c.Hot(context.Background(), "coffee", 25)
	require.Error(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestDisabledCachePassesThrough(t *testing.T) {
	next := &countingLister{}
	c := New(next, nil, time.Minute, nil)
	posts, err := c.Hot(context.Background(), "/r/Coffee/", 25)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello coffee", posts[0].Title)
	for range 3 {
		_, err := c.Hot(context.Background(), "coffee", 25)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 4, next.calls.Load())
	assert.NoError(t, c.Invalidate(context.Background()))
}

func TestInvalidate(t *testing.T) {
	next := &countingLister{}
	store := newMemStore()
	c := New(next, store, time.Minute, nil)
	ctx := context.Background()

	_, err := c.Hot(ctx, "coffee", 25)
	require.NoError(t, err)
	require.NoError(t, c.Invalidate(ctx))
	_, err = c.Hot(ctx, "coffee", 25)
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())
}
