package middleware

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	redisclient "github.com/claudiator/server-go/internal/redis"
)

// fixedWindowScript increments the window counter, setting its expiry on the
// first hit, and reports whether the request fits under the limit.
var fixedWindowScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local ttl = tonumber(ARGV[2])

local count = redis.call('INCR', key)
if count == 1 then
    redis.call('EXPIRE', key, ttl)
end

if count > limit then
    return 0
end
return 1
`)

// RedisKeyLimiter shares per-key windows between server replicas. When redis
// is unreachable it falls back to the in-process limiter.
type RedisKeyLimiter struct {
	client   *redis.Client
	window   time.Duration
	fallback KeyLimiter
	now      func() time.Time
}

func NewRedisKeyLimiter(client *redis.Client, window time.Duration, fallback KeyLimiter) *RedisKeyLimiter {
	return &RedisKeyLimiter{client: client, window: window, fallback: fallback, now: time.Now}
}

func (rl *RedisKeyLimiter) Allow(ctx context.Context, keyID string, limit int) bool {
	windowSecs := int64(rl.window.Seconds())
	slot := rl.now().Unix() / windowSecs
	key := redisclient.KeyRateLimitKey(keyID, slot)

	allowed, err := fixedWindowScript.Run(ctx, rl.client, []string{key}, limit, windowSecs+1).Int()
	if err != nil {
		log.Warn().Err(err).Str("keyId", keyID).Msg("redis rate limit check failed, using local limiter")
		return rl.fallback.Allow(ctx, keyID, limit)
	}
	return allowed == 1
}
