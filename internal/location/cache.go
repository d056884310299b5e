// File: internal/location/cache.go
package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const hierarchyCacheKey = "location:hierarchy:v1"

// HierarchyCache stores the full location tree.
type HierarchyCache interface {
	// Get returns nil without error on a miss.
	Get(ctx context.Context) (*Hierarchy, error)
	Set(ctx context.Context, h *Hierarchy) error
	Delete(ctx context.Context) error
}

type redisHierarchyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHierarchyCache returns a redis backed cache, or nil when client is nil
// so callers go straight to the database.
func NewHierarchyCache(client *redis.Client, ttl time.Duration) HierarchyCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisHierarchyCache{client: client, ttl: ttl}
}

func (c *redisHierarchyCache) Get(ctx context.Context) (*Hierarchy, error) {
	raw, err := c.client.Get(ctx, hierarchyCacheKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var h Hierarchy
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("decode cached hierarchy: %w", err)
	}
	return &h, nil
}

func (c *redisHierarchyCache) Set(ctx context.Context, h *Hierarchy) error {
	raw, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encode hierarchy: %w", err)
	}
	return c.client.Set(ctx, hierarchyCacheKey, raw, c.ttl).Err()
}

func (c *redisHierarchyCache) Delete(ctx context.Context) error {
	return c.client.Del(ctx, hierarchyCacheKey).Err()
}
