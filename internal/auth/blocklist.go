// File: internal/auth/blocklist.go
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// TokenBlocklistService defines the interface for a JWT blocklist.
type TokenBlocklistService interface {
	// AddToBlocklist adds a token's JTI (JWT ID) to the blocklist with a given expiration.
	AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error
	// IsBlocklisted checks if a token's JTI is in the blocklist.
	IsBlocklisted(ctx context.Context, jti string) (bool, error)
}

// InMemoryBlocklistService is an in-memory implementation of TokenBlocklistService using a cache.
type InMemoryBlocklistService struct {
	mu    sync.RWMutex
	cache *cache.Cache
}

// InMemoryBlocklistConfig holds the configuration for the InMemoryBlocklistService.
type InMemoryBlocklistConfig struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

// NewInMemoryBlocklistService creates a new in-memory blocklist service.
func NewInMemoryBlocklistService(cfg InMemoryBlocklistConfig) *InMemoryBlocklistService {
	return &InMemoryBlocklistService{
		cache: cache.New(cfg.DefaultExpiration, cfg.CleanupInterval),
	}
}

// AddToBlocklist keeps the JTI for as long as the token would have been valid.
func (s *InMemoryBlocklistService) AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	duration := time.Until(expiresAt)
	if duration <= 0 {
		return nil
	}
	s.cache.Set(jti, true, duration)
	return nil
}

// IsBlocklisted checks if a token JTI exists in the in-memory cache.
func (s *InMemoryBlocklistService) IsBlocklisted(ctx context.Context, jti string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, found := s.cache.Get(jti)
	return found, nil
}

// RedisBlocklistService shares the blocklist between server instances.
type RedisBlocklistService struct {
	client *redis.Client
}

func NewRedisBlocklistService(client *redis.Client) *RedisBlocklistService {
	return &RedisBlocklistService{client: client}
}

func blocklistKey(jti string) string {
	return "auth:blocklist:" + jti
}

func (s *RedisBlocklistService) AddToBlocklist(ctx context.Context, jti string, expiresAt time.Time) error {
	duration := time.Until(expiresAt)
	if duration <= 0 {
		return nil
	}
	return s.client.Set(ctx, blocklistKey(jti), 1, duration).Err()
}

func (s *RedisBlocklistService) IsBlocklisted(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, blocklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// NewBlocklistService picks the redis blocklist when a client is configured.
func NewBlocklistService(client *redis.Client) TokenBlocklistService {
	if client != nil {
		return NewRedisBlocklistService(client)
	}
	return NewInMemoryBlocklistService(InMemoryBlocklistConfig{
		DefaultExpiration: time.Hour,
		CleanupInterval:   10 * time.Minute,
	})
}
