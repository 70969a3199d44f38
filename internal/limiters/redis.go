package limiters

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisResetLimiter enforces the fixed window with a shared Redis counter so
// multiple portal instances count against one budget. INCR is atomic on the
// server; the expiry is set only for the first hit in the window.
type RedisResetLimiter struct {
	redis  redis.UniversalClient
	prefix string
	config Config
}

func NewRedisResetLimiter(redisClient redis.UniversalClient, prefix string, cfg Config) *RedisResetLimiter {
	if prefix == "" {
		prefix = "agr"
	}
	return &RedisResetLimiter{
		redis:  redisClient,
		prefix: prefix,
		config: cfg,
	}
}

func (l *RedisResetLimiter) key(identifier string) string {
	return l.prefix + ":rl:" + identifier
}

func (l *RedisResetLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	counterKey := l.key(key)

	count, err := l.redis.Incr(ctx, counterKey).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, counterKey, l.config.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}

	if count > int64(l.config.MaxAttempts) {
		retryAfter, err := l.redis.PTTL(ctx, counterKey).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
		if retryAfter < 0 {
			retryAfter = l.config.Window
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}, nil
	}

	remaining := l.config.MaxAttempts - int(count)
	return Decision{Allowed: true, Remaining: remaining}, nil
}
