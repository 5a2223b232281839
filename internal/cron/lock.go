package cron

import (
	"context"
	"time"
)

// redisLockStore is the slice of the Redis client the lock manager needs.
type redisLockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLockManager implements job locking with SETNX + TTL. The TTL bounds
// how long a crashed worker can starve a job.
type RedisLockManager struct {
	store redisLockStore
}

// NewRedisLockManager builds a lock manager on the shared Redis client.
func NewRedisLockManager(store redisLockStore) *RedisLockManager {
	return &RedisLockManager{store: store}
}

// Acquire takes the named lock, reporting false when another worker holds it.
func (m *RedisLockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return m.store.SetNX(ctx, m.store.LockKey(name), "1", ttl)
}

// Release frees the named lock.
func (m *RedisLockManager) Release(ctx context.Context, name string) error {
	return m.store.Del(ctx, m.store.LockKey(name))
}
