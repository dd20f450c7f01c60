// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)
	defer cache.Close()

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)

	val, ok := cache.Get(ctx, "key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, []byte("value1"), val)

	_, ok = cache.Get(ctx, "nonexistent")
	assert.False(t, ok, "expected not to find nonexistent key")
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0).(*memoryCache)
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	c.Set(ctx, "shortlived", []byte("value"), time.Minute)
	_, ok := c.Get(ctx, "shortlived")
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.Get(ctx, "shortlived")
	assert.False(t, ok, "expected key to be expired")
}

func TestMemoryCache_NonPositiveTTLIsIgnored(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "k", []byte("v"), 0)
	_, ok := cache.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), cache.Stats().Sets)
}

func TestMemoryCache_Delete(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	cache.Delete(ctx, "key1")

	_, ok := cache.Get(ctx, "key1")
	assert.False(t, ok, "expected key1 to be deleted")
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "key1")
	cache.Get(ctx, "missing")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_Janitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	cache := NewMemoryCache(20 * time.Millisecond)

	cache.Set(ctx, "key1", []byte("v"), 10*time.Millisecond)
	cache.Set(ctx, "key2", []byte("v"), 10*time.Minute)

	require.Eventually(t, func() bool {
		return cache.Stats().CurrentSize == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), cache.Stats().Evictions)

	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close(), "Close is idempotent")
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j%5)
				cache.Set(ctx, key, []byte("v"), time.Minute)
				cache.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 50, cache.Stats().CurrentSize)
}

func TestNoOpCache(t *testing.T) {
	ctx := context.Background()
	cache := NewNoOpCache()

	cache.Set(ctx, "key1", []byte("value1"), 5*time.Minute)
	_, ok := cache.Get(ctx, "key1")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, cache.Stats())
	assert.NoError(t, cache.Close())
}
