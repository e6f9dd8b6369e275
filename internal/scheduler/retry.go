package scheduler

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes the scheduler's task-level retry policy, distinct
// from the forge client's own request-level retry/backoff.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig matches spec.md §4.7: 3 retries, 60s initial,
// 5-minute cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 60 * time.Second,
		MaxBackoff:     5 * time.Minute,
	}
}

// NextAttemptAt computes when a failed task should become eligible for
// redelivery, using exponential backoff with +/-25% jitter capped at
// config.MaxBackoff.
func NextAttemptAt(now time.Time, attempt int, config RetryConfig) time.Time {
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	delay := backoff + jitter
	if delay < 0 {
		delay = 0
	}

	return now.Add(time.Duration(delay))
}

// TransientErrorKinds are the declared error classes the scheduler
// retries instead of dead-lettering immediately.
type TransientErrorKind int

const (
	TransientRateLimited TransientErrorKind = iota
	TransientTimeout
	TransientConnection
)

// transientError is satisfied by errors that carry their own
// classification (e.g. forge.Error.IsRetryable).
type transientError interface {
	IsRetryable() bool
}

// IsTransient reports whether err belongs to one of the declared
// transient kinds and should be retried rather than dead-lettered.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te transientError
	if errors.As(err, &te) {
		return te.IsRetryable()
	}
	return false
}
