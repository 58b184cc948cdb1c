package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"brokerage-onboarding-backend/internal/delivery/http/response"
	"brokerage-onboarding-backend/internal/domain"
	"brokerage-onboarding-backend/pkg/audit"
	"brokerage-onboarding-backend/pkg/redis"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
)

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// Requests per window
	Limit int
	// Time window duration
	Window time.Duration
	// Key extractor (default: client id, then IP)
	KeyFunc func(*gin.Context) string
	// Key prefix for Redis
	KeyPrefix string
	// Whether to fail closed (reject) when Redis errors
	FailClosed bool
	// Redis client; nil uses the shared client, falling back to memory
	Redis *goredis.Client
	Audit *audit.Logger
}

// Lua script for atomic increment with TTL on first set
// KEYS[1] = counter key
// ARGV[1] = TTL in seconds
// Returns: [current_count, ttl_remaining]
const rateLimitLuaScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('TTL', KEYS[1])
return {count, ttl}
`

// OnboardingRateLimitConfig limits wizard mutations per client
func OnboardingRateLimitConfig(limit int, window time.Duration, auditLogger *audit.Logger) RateLimitConfig {
	return RateLimitConfig{
		Limit:      limit,
		Window:     window,
		KeyPrefix:  "rl:onboarding:",
		FailClosed: false, // Fail open for availability
		KeyFunc:    clientOrIP,
		Audit:      auditLogger,
	}
}

func clientOrIP(c *gin.Context) string {
	if id := c.GetString(string(domain.KeyUserID)); id != "" {
		return "client:" + id
	}
	return "ip:" + c.ClientIP()
}

// RateLimitMiddleware creates a rate limiting middleware with the given config.
// Uses Redis when available, falls back to in-memory when not.
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = clientOrIP
	}
	if config.Audit == nil {
		config.Audit = audit.Nop()
	}
	fallback := gocache.New(config.Window, 5*time.Minute)

	return func(c *gin.Context) {
		fullKey := config.KeyPrefix + config.KeyFunc(c)
		now := time.Now()

		var count int
		var resetAt time.Time

		redisClient := config.Redis
		if redisClient == nil {
			redisClient = redis.Client()
		}

		if redisClient != nil {
			var err error
			count, resetAt, err = checkRateLimitRedis(c.Request.Context(), redisClient, fullKey, config)
			if err != nil {
				if config.FailClosed {
					response.Error(c, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again.", nil)
					c.Abort()
					return
				}
				count, resetAt = checkRateLimitInMemory(fallback, fullKey, config, now)
			}
		} else {
			count, resetAt = checkRateLimitInMemory(fallback, fullKey, config, now)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

		if count > config.Limit {
			retryAfter := int(resetAt.Sub(now).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(retryAfter))

			config.Audit.RateLimitTriggered(c.Request.Context(), c.ClientIP(), c.FullPath())

			response.Error(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.", nil)
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(config.Limit-count))
		c.Next()
	}
}

// checkRateLimitRedis checks rate limit using Redis with atomic Lua script
func checkRateLimitRedis(ctx context.Context, client *goredis.Client, key string, config RateLimitConfig) (int, time.Time, error) {
	ttlSeconds := int(config.Window.Seconds())

	result, err := client.Eval(ctx, rateLimitLuaScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis rate limit eval failed: %w", err)
	}

	arr, ok := result.([]interface{})
	if !ok || len(arr) < 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected redis result format")
	}

	count, _ := arr[0].(int64)
	ttl, _ := arr[1].(int64)

	return int(count), time.Now().Add(time.Duration(ttl) * time.Second), nil
}

// checkRateLimitInMemory counts hits in a go-cache entry that expires with the window
func checkRateLimitInMemory(store *gocache.Cache, key string, config RateLimitConfig, now time.Time) (int, time.Time) {
	_ = store.Add(key, 0, config.Window)

	count, err := store.IncrementInt(key, 1)
	if err != nil {
		// Expired between Add and Increment
		store.Set(key, 1, config.Window)
		return 1, now.Add(config.Window)
	}

	_, resetAt, found := store.GetWithExpiration(key)
	if !found || resetAt.IsZero() {
		resetAt = now.Add(config.Window)
	}
	return count, resetAt
}
