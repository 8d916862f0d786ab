package utils

import (
	"context"
	"math/rand"
	"time"
)

// RetryWithBackoff retries fn up to maxAttempts with exponential backoff and
// jitter, stopping early when shouldRetry rejects the error or the context
// is cancelled. Used by the transactional coordinator for transaction-abort
// retries; business-rule failures are never retried.
func RetryWithBackoff(ctx context.Context, maxAttempts int, initialDelay time.Duration, shouldRetry func(error) bool, fn func() error) error {
	var err error
	delay := initialDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return err
		}

		if attempt < maxAttempts {
			jitter := time.Duration(rand.Int63n(int64(delay) + 1))
			select {
			case <-time.After(delay + jitter):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}
	}

	return err
}

func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
