package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter keeps each scope's window in a sorted set scored by invocation time in
// milliseconds, so every bot replica shares the same budget.
type RedisLimiter struct {
	client *redis.Client
	log    *slog.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a Redis-backed Limiter.
func NewRedisLimiter(client *redis.Client, log *slog.Logger) *RedisLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &RedisLimiter{
		client: client,
		log:    log,
	}
}

// Allow charges one invocation of scope against rule.
func (l *RedisLimiter) Allow(ctx context.Context, scope Scope, rule Rule) (Decision, error) {
	if l.client == nil {
		return Decision{}, errors.New("redis client is not configured for rate limiting")
	}
	if rule.Limit <= 0 {
		return Decision{RetryAfter: rule.Window}, nil
	}

	now := time.Now()
	key := keyPrefix + scope.Key()
	member := uuid.NewString()

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", fmt.Sprintf("%f", toScore(now.Add(-rule.Window))))
	pipe.ZAdd(ctx, key, redis.Z{Score: toScore(now), Member: member})
	countCmd := pipe.ZCard(ctx, key)
	oldestCmd := pipe.ZRangeWithScores(ctx, key, 0, 0)
	pipe.Expire(ctx, key, rule.Window)

	if _, err := pipe.Exec(ctx); err != nil {
		l.log.Warn("rate limiter pipeline failed", slog.String("key", key), slog.Any("error", err))
		return Decision{}, err
	}

	count := int(countCmd.Val())
	if count <= rule.Limit {
		return Decision{Allowed: true, Remaining: rule.Limit - count}, nil
	}

	if err := l.client.ZRem(ctx, key, member).Err(); err != nil {
		l.log.Warn("rate limiter failed to drop refused invocation", slog.String("key", key), slog.Any("error", err))
	}

	oldest := now
	if zs := oldestCmd.Val(); len(zs) > 0 {
		oldest = fromScore(zs[0].Score)
	}
	return refuse(rule, oldest, now), nil
}

func toScore(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Millisecond)
}

func fromScore(score float64) time.Time {
	return time.Unix(0, int64(score*float64(time.Millisecond)))
}
