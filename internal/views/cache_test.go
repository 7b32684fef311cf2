package views

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*ListCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewListCache(client, time.Minute), mr
}

func TestListCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	refs := []Ref{{ID: 1, ViewName: "grid"}, {ID: 2, ViewName: "finance"}}

	_, ok := cache.Get(ctx, 7, "sites")
	assert.False(t, ok)

	cache.Set(ctx, 7, "sites", refs)
	got, ok := cache.Get(ctx, 7, "sites")
	require.True(t, ok)
	assert.Equal(t, refs, got)
}

func TestListCacheScopedPerUserAndTable(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	cache.Set(ctx, 7, "sites", []Ref{{ID: 1, ViewName: "grid"}})

	_, ok := cache.Get(ctx, 8, "sites")
	assert.False(t, ok)
	_, ok = cache.Get(ctx, 7, "reports")
	assert.False(t, ok)
}

func TestListCacheInvalidate(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()
	cache.Set(ctx, 7, "sites", []Ref{{ID: 1, ViewName: "grid"}})

	cache.Invalidate(ctx, 7, "sites")
	_, ok := cache.Get(ctx, 7, "sites")
	assert.False(t, ok)
}

func TestListCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	cache.Set(ctx, 7, "sites", []Ref{{ID: 1, ViewName: "grid"}})

	mr.FastForward(2 * time.Minute)
	_, ok := cache.Get(ctx, 7, "sites")
	assert.False(t, ok)
}

func TestListCacheDisabled(t *testing.T) {
	var cache *ListCache
	ctx := context.Background()
	cache.Set(ctx, 7, "sites", []Ref{{ID: 1, ViewName: "grid"}})
	_, ok := cache.Get(ctx, 7, "sites")
	assert.False(t, ok)
}
