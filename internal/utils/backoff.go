package utils

import (
	"context"
	"time"
)

// Backoff retries a call up to maxRetries extra times. Delays double per
// attempt unless the backoff is fixed.
type Backoff struct {
	base       time.Duration
	maxRetries int
	fixed      bool
	retryable  func(error) bool
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// NewFixedBackoff waits the same delay before every retry.
func NewFixedBackoff(delay time.Duration, maxRetries int) Backoff {
	return Backoff{base: delay, maxRetries: maxRetries, fixed: true}
}

// Only restricts retries to errors accepted by f.
func (b Backoff) Only(f func(error) bool) Backoff {
	b.retryable = f
	return b
}

func (b Backoff) Delay(i int) time.Duration {
	if b.fixed {
		return b.base
	}
	return time.Duration(1<<i) * b.base
}

func (b Backoff) Do(ctx context.Context, fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if i == b.maxRetries || (b.retryable != nil && !b.retryable(err)) {
			return err
		}
		t := time.NewTimer(b.Delay(i))
		select {
		case <-ctx.Done():
			t.Stop()
			return err
		case <-t.C:
		}
	}
	return err
}
