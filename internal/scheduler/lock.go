package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const tenantLockPrefix = "prreview:tenant-lock:"

// releaseScript deletes a lock only if its value still matches the
// token the caller acquired it with, so a worker can never release a
// lock another worker has since taken over after this one's TTL lapsed.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// TenantLock enforces spec.md §4.7's ordering guarantee: tasks for the
// same tenant key never execute concurrently, by requiring a worker to
// hold this lock for the duration of processing.
type TenantLock struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewTenantLock builds a lock with the given hold duration, which
// should comfortably exceed a task's soft deadline so a slow-but-alive
// worker is never preempted by its own lock expiring.
func NewTenantLock(rdb *redis.Client, ttl time.Duration) *TenantLock {
	return &TenantLock{redis: rdb, ttl: ttl}
}

// Token identifies one lock acquisition; pass the returned value to
// Release.
type Token string

// TryAcquire attempts to take the lock for tenantKey, returning ("", false)
// if another worker already holds it.
func (l *TenantLock) TryAcquire(ctx context.Context, tenantKey string) (Token, bool, error) {
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, lockKey(tenantKey), token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("scheduler: acquire tenant lock: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return Token(token), true, nil
}

// Release drops the lock if token still owns it.
func (l *TenantLock) Release(ctx context.Context, tenantKey string, token Token) error {
	if err := releaseScript.Run(ctx, l.redis, []string{lockKey(tenantKey)}, string(token)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("scheduler: release tenant lock: %w", err)
	}
	return nil
}

func lockKey(tenantKey string) string {
	return tenantLockPrefix + tenantKey
}
