package forge

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig tunes RetryWithBackoff.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the retry policy a freshly constructed
// Client uses until overridden.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     32 * time.Second,
		Multiplier:     2.0,
	}
}

// ExponentialBackoff computes the wait before attempt, as
// min(initial * multiplier^attempt, max) with +/-25% jitter.
func ExponentialBackoff(attempt int, config RetryConfig) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(config.Multiplier, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	jitterRange := 0.25 * backoff
	jitter := (rand.Float64() * 2 * jitterRange) - jitterRange
	result := backoff + jitter

	if result > float64(config.MaxBackoff) {
		result = float64(config.MaxBackoff)
	}
	if result < 0 {
		result = 0
	}
	return time.Duration(result)
}

// ShouldRetry reports whether err is a forge *Error marked retryable.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var forgeErr *Error
	if errors.As(err, &forgeErr) {
		return forgeErr.IsRetryable()
	}
	return false
}

// Operation is a unit of work RetryWithBackoff can retry.
type Operation func(ctx context.Context) error

// RetryWithBackoff runs operation, retrying on retryable errors with
// exponential backoff until config.MaxRetries is exhausted or ctx is
// canceled.
func RetryWithBackoff(ctx context.Context, operation Operation, config RetryConfig) error {
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !ShouldRetry(err) {
			return err
		}
		if attempt >= config.MaxRetries {
			return err
		}

		select {
		case <-time.After(ExponentialBackoff(attempt, config)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
