package middlewares

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter enforces the same fixed window as RateLimiter but across
// processes, using INCR with an EXPIRE on the first hit of each window.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, log *slog.Logger) *RedisRateLimiter {
	return &RedisRateLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		log:    log,
	}
}

func (rl *RedisRateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)

		if key == "" {
			key = clientIP(c)
		}

		ctx := c.Request.Context()
		redisKey := "ratelimit:" + key

		count, err := rl.rdb.Incr(ctx, redisKey).Result()

		if err != nil {
			// redis being down should not take auth down with it
			rl.log.Warn("rate limiter unavailable, letting request through", "err", err)
			c.Next()
			return
		}

		if count == 1 {
			if err := rl.rdb.Expire(ctx, redisKey, rl.window).Err(); err != nil {
				rl.log.Warn("rate limiter expire failed", "err", err)
			}
		}

		if count > int64(rl.limit) {
			ttl, err := rl.rdb.TTL(ctx, redisKey).Result()

			retryAfter := 0

			if err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds())
			}

			abortRateLimited(c, retryAfter)

			return
		}

		c.Next()
	}
}
