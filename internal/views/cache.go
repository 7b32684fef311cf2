package views

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gridgate/gridgate/internal/platform/cache"
)

// ListCache keeps view-switcher listings in redis. Mutations invalidate the
// owning (user, table) entry so listings stay read-your-writes.
type ListCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewListCache constructs a cache; a nil client disables caching.
func NewListCache(client *redis.Client, ttl time.Duration) *ListCache {
	return &ListCache{client: client, ttl: ttl}
}

func listKey(userID int64, tableID string) string {
	return fmt.Sprintf("gridgate:views:%d:%s", userID, tableID)
}

// Get returns the cached listing, or ok=false on miss or disabled cache.
func (c *ListCache) Get(ctx context.Context, userID int64, tableID string) ([]Ref, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	var refs []Ref
	ok, err := cache.GetJSON(ctx, c.client, listKey(userID, tableID), &refs)
	if err != nil || !ok {
		return nil, false
	}
	return refs, true
}

// Set stores the listing.
func (c *ListCache) Set(ctx context.Context, userID int64, tableID string, refs []Ref) {
	if c == nil || c.client == nil {
		return
	}
	_ = cache.SetJSON(ctx, c.client, listKey(userID, tableID), refs, c.ttl)
}

// Invalidate drops the listing for one (user, table).
func (c *ListCache) Invalidate(ctx context.Context, userID int64, tableID string) {
	if c == nil || c.client == nil {
		return
	}
	_ = cache.Invalidate(ctx, c.client, listKey(userID, tableID))
}
