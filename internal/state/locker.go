package state

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	userLockKeyPattern = "conversation:lock:%s"
	lockTTL            = 5 * time.Second
)

// Locker guards read-modify-write cycles on a single user's state.
type Locker interface {
	Lock(ctx context.Context, userID string) error
	Unlock(ctx context.Context, userID string)
}

// RedisLocker holds per-user locks in Redis so several bot replicas can share state.
type RedisLocker struct {
	client *redis.Client
	log    *slog.Logger
}

// NewRedisLocker creates a Redis-backed Locker.
func NewRedisLocker(client *redis.Client, log *slog.Logger) *RedisLocker {
	if log == nil {
		log = slog.Default()
	}
	return &RedisLocker{client: client, log: log}
}

// Lock acquires the user lock or returns ErrStateLocked when somebody else holds it.
func (l *RedisLocker) Lock(ctx context.Context, userID string) error {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	acquired, err := l.client.SetNX(ctx, key, 1, lockTTL).Result()
	if err != nil {
		l.log.Warn("failed to acquire user state lock", "user_id", userID, "error", err)
		return err
	}

	if !acquired {
		l.log.Warn("user state lock already held", "user_id", userID)
		return ErrStateLocked
	}

	return nil
}

// Unlock releases the user lock.
func (l *RedisLocker) Unlock(ctx context.Context, userID string) {
	key := fmt.Sprintf(userLockKeyPattern, userID)
	if err := l.client.Del(ctx, key).Err(); err != nil {
		l.log.Warn("failed to release user state lock", "user_id", userID, "error", err)
	}
}

// LocalLocker is the single-process Locker used when Redis is not configured.
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an in-process Locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Lock acquires the user lock or returns ErrStateLocked when it is already held.
func (l *LocalLocker) Lock(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[userID]; ok {
		return ErrStateLocked
	}
	l.held[userID] = struct{}{}
	return nil
}

// Unlock releases the user lock.
func (l *LocalLocker) Unlock(_ context.Context, userID string) {
	l.mu.Lock()
	delete(l.held, userID)
	l.mu.Unlock()
}
