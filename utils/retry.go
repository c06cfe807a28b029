package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds the parameters for the retry strategy.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *Logger
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do executes fn with exponential back-off retry logic. An error wrapped with
// Permanent stops the loop at once.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	retries := r.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)

	attempt := 0
	op := func() error {
		attempt++
		return fn()
	}
	notify := func(err error, wait time.Duration) {
		if r.Logger != nil {
			r.Logger.Warn("[retry] %s failed (attempt %d/%d): %v; retrying in %v",
				operationName, attempt, retries+1, err, wait)
		}
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return fmt.Errorf("%s failed after %d attempt(s): %w", operationName, attempt, err)
	}
	return nil
}
