// File: internal/middleware/ratelimit.go
package middleware

import (
	"fmt"
	"strconv"
	"time"

	"wasa_admin_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimitConfig configures the token bucket for one route group.
type RateLimitConfig struct {
	Name              string
	RequestsPerSecond float64
	Burst             int
}

// tokenBucketScript refills the bucket for the elapsed time and takes one
// token. Returns 1 when the request may proceed.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end
redis.call('HSET', key, 'last_refill', now, 'tokens', tokens)
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RateLimiter limits requests per client IP using a token bucket kept in
// redis. Without a redis client, or when redis fails, requests pass.
func RateLimiter(client *redis.Client, cfg RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if client == nil || cfg.RequestsPerSecond <= 0 || cfg.Burst <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	// Keep an idle bucket around long enough to refill completely.
	ttl := int(float64(cfg.Burst)/cfg.RequestsPerSecond) + 1

	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:tb:%s:%s", cfg.Name, c.ClientIP())
		now := float64(time.Now().UnixMilli()) / 1000.0

		allowed, err := tokenBucketScript.Run(c.Request.Context(), client, []string{key},
			cfg.RequestsPerSecond,
			cfg.Burst,
			strconv.FormatFloat(now, 'f', 3, 64),
			ttl,
		).Int64()
		if err != nil {
			logger.Warn("Rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if allowed == 0 {
			c.Header("Retry-After", strconv.Itoa(int(1/cfg.RequestsPerSecond)+1))
			common.RespondWithError(c, common.ErrTooManyRequests.WithDetails(
				fmt.Sprintf("Rate limit exceeded: %.2f requests/second (burst %d).", cfg.RequestsPerSecond, cfg.Burst)))
			return
		}
		c.Next()
	}
}
