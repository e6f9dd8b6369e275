package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	laneKeyPrefix = "prreview:queue:"
	retryKey      = "prreview:queue:retry"
	deadLetterKey = "prreview:queue:deadletter"
)

// Queue is the redis-backed multi-lane task queue: one list per lane,
// a single retry sorted set shared across lanes (scored by the unix
// nanosecond the task becomes due again), and one dead-letter list.
type Queue struct {
	redis *redis.Client
}

// NewQueue builds a Queue over rdb.
func NewQueue(rdb *redis.Client) *Queue {
	return &Queue{redis: rdb}
}

func laneKey(lane Lane) string {
	return laneKeyPrefix + string(lane)
}

// Enqueue appends task to the back of its lane.
func (q *Queue) Enqueue(ctx context.Context, task Task) error {
	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("scheduler: marshal task: %w", err)
	}
	if err := q.redis.RPush(ctx, laneKey(task.Lane), raw).Err(); err != nil {
		return fmt.Errorf("scheduler: enqueue: %w", err)
	}
	return nil
}

// Dequeue blocks up to timeout for a task to arrive on lane, returning
// (nil, nil) on timeout (not an error: the worker loop should just
// poll again) so callers can distinguish "nothing to do" from a real
// Redis failure.
func (q *Queue) Dequeue(ctx context.Context, lane Lane, timeout time.Duration) (*Task, error) {
	result, err := q.redis.BLPop(ctx, timeout, laneKey(lane)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduler: dequeue: %w", err)
	}

	// BLPop returns [key, value]; value is the second element.
	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("scheduler: unmarshal task: %w", err)
	}
	return &task, nil
}

// Depth reports the number of tasks currently queued on lane.
func (q *Queue) Depth(ctx context.Context, lane Lane) (int64, error) {
	n, err := q.redis.LLen(ctx, laneKey(lane)).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: queue depth: %w", err)
	}
	return n, nil
}

// Retry schedules task for redelivery to its own lane after a
// backoff delay, or moves it to the dead letter sink once
// config.MaxRetries is exhausted.
func (q *Queue) Retry(ctx context.Context, task Task, config RetryConfig, reason string) error {
	if task.Attempt >= config.MaxRetries {
		return q.DeadLetter(ctx, task, reason)
	}

	task.Attempt++
	dueAt := NextAttemptAt(time.Now(), task.Attempt, config)

	raw, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("scheduler: marshal retry task: %w", err)
	}
	if err := q.redis.ZAdd(ctx, retryKey, redis.Z{
		Score:  float64(dueAt.UnixNano()),
		Member: raw,
	}).Err(); err != nil {
		return fmt.Errorf("scheduler: schedule retry: %w", err)
	}
	return nil
}

// DeadLetterEnvelope records why a task was given up on.
type DeadLetterEnvelope struct {
	Task     Task      `json:"task"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// DeadLetter moves task to the dead-letter list with reason attached.
func (q *Queue) DeadLetter(ctx context.Context, task Task, reason string) error {
	raw, err := json.Marshal(DeadLetterEnvelope{Task: task, Reason: reason, FailedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("scheduler: marshal dead letter: %w", err)
	}
	if err := q.redis.RPush(ctx, deadLetterKey, raw).Err(); err != nil {
		return fmt.Errorf("scheduler: dead letter: %w", err)
	}
	return nil
}

// RetryDepth reports the number of tasks currently awaiting redelivery.
func (q *Queue) RetryDepth(ctx context.Context) (int64, error) {
	n, err := q.redis.ZCard(ctx, retryKey).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: retry depth: %w", err)
	}
	return n, nil
}

// DeadLetterDepth reports the number of tasks that have exhausted retries.
func (q *Queue) DeadLetterDepth(ctx context.Context) (int64, error) {
	n, err := q.redis.LLen(ctx, deadLetterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: dead letter depth: %w", err)
	}
	return n, nil
}

// PeekDeadLetter returns up to limit of the most recently dead-lettered
// tasks, newest first, for an operator surface to inspect.
func (q *Queue) PeekDeadLetter(ctx context.Context, limit int64) ([]DeadLetterEnvelope, error) {
	if limit <= 0 {
		limit = 20
	}
	raw, err := q.redis.LRange(ctx, deadLetterKey, -limit, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("scheduler: peek dead letter: %w", err)
	}

	envelopes := make([]DeadLetterEnvelope, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var env DeadLetterEnvelope
		if err := json.Unmarshal([]byte(raw[i]), &env); err != nil {
			continue
		}
		envelopes = append(envelopes, env)
	}
	return envelopes, nil
}

// PromoteDueRetries moves every task in the retry set whose due time
// has passed back onto its origin lane. Intended to be called
// periodically by a single mover goroutine; returns the count moved.
func (q *Queue) PromoteDueRetries(ctx context.Context, now time.Time) (int, error) {
	members, err := q.redis.ZRangeByScore(ctx, retryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", now.UnixNano()),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("scheduler: scan due retries: %w", err)
	}

	moved := 0
	for _, raw := range members {
		removed, err := q.redis.ZRem(ctx, retryKey, raw).Result()
		if err != nil || removed == 0 {
			// Another mover instance already claimed this member.
			continue
		}

		var task Task
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			continue
		}
		if err := q.redis.RPush(ctx, laneKey(task.Lane), raw).Err(); err != nil {
			return moved, fmt.Errorf("scheduler: promote retry: %w", err)
		}
		moved++
	}
	return moved, nil
}
