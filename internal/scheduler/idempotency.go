package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "prreview:review:"

// defaultIdempotencyTTL bounds how long a duplicate-suppressing key
// survives if the review never reaches a terminal status to delete it
// explicitly (crash, stuck task); spec.md §4.8 default is two hours.
const defaultIdempotencyTTL = 2 * time.Hour

// IdempotencyKey builds the key spec.md §4.8 specifies:
// review:{repo-id}:{pr-number}:{head-commit}.
func IdempotencyKey(repositoryID int64, prNumber int, headSHA string) string {
	return fmt.Sprintf("%d:%d:%s", repositoryID, prNumber, headSHA)
}

// IdempotencyKeeper performs the set-if-absent discipline the gateway
// consults before enqueueing a task.
type IdempotencyKeeper struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewIdempotencyKeeper builds a keeper with defaultIdempotencyTTL.
func NewIdempotencyKeeper(rdb *redis.Client) *IdempotencyKeeper {
	return &IdempotencyKeeper{redis: rdb, ttl: defaultIdempotencyTTL}
}

// SetTTL overrides the default hold duration.
func (k *IdempotencyKeeper) SetTTL(ttl time.Duration) { k.ttl = ttl }

// TryClaim sets the key if absent, returning true if this caller is
// the first to see it (and should enqueue) and false if a delivery is
// already in flight (and should acknowledge without enqueueing).
func (k *IdempotencyKeeper) TryClaim(ctx context.Context, key string) (bool, error) {
	ok, err := k.redis.SetNX(ctx, idempotencyKeyPrefix+key, "1", k.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("scheduler: claim idempotency key: %w", err)
	}
	return ok, nil
}

// Release deletes the key on terminal status (completed or failed
// after the final retry), so a genuinely new push to the same head
// commit (which cannot happen, but a forced re-review can) is not
// permanently blocked.
func (k *IdempotencyKeeper) Release(ctx context.Context, key string) error {
	if err := k.redis.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("scheduler: release idempotency key: %w", err)
	}
	return nil
}
