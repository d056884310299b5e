// File: internal/auth/blocklist_test.go
package auth

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryBlocklistService(t *testing.T) {
	svc := NewBlocklistService(nil)
	ctx := t.Context()

	require.NoError(t, svc.AddToBlocklist(ctx, "jti-1", time.Now().Add(time.Minute)))
	// Already expired tokens are not stored.
	require.NoError(t, svc.AddToBlocklist(ctx, "jti-2", time.Now().Add(-time.Minute)))

	found, err := svc.IsBlocklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = svc.IsBlocklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisBlocklistService(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewBlocklistService(client)
	_, isRedis := svc.(*RedisBlocklistService)
	require.True(t, isRedis)
	ctx := t.Context()

	require.NoError(t, svc.AddToBlocklist(ctx, "jti-1", time.Now().Add(30*time.Second)))
	assert.True(t, mr.Exists("auth:blocklist:jti-1"))

	found, err := svc.IsBlocklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, found)

	mr.FastForward(31 * time.Second)
	found, err = svc.IsBlocklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, found)
}
