package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errTransient = errors.New("transient")

func TestFixedBackoffRetriesOnce(t *testing.T) {
	calls := 0
	err := NewFixedBackoff(time.Millisecond, 1).Do(context.Background(), func(i int) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 2, calls)
}

func TestBackoffStopsOnNonRetryable(t *testing.T) {
	calls := 0
	permanent := errors.New("permanent")
	b := NewFixedBackoff(time.Millisecond, 3).Only(func(err error) bool { return errors.Is(err, errTransient) })
	err := b.Do(context.Background(), func(i int) error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestBackoffSucceedsAfterRetry(t *testing.T) {
	calls := 0
	err := NewBackoff(time.Millisecond, 2).Do(context.Background(), func(i int) error {
		calls++
		if i == 0 {
			return errTransient
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestBackoffDelay(t *testing.T) {
	assert.Equal(t, 40*time.Millisecond, NewBackoff(10*time.Millisecond, 3).Delay(2))
	assert.Equal(t, 10*time.Millisecond, NewFixedBackoff(10*time.Millisecond, 3).Delay(2))
}

func TestBackoffHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := NewFixedBackoff(time.Hour, 1).Do(ctx, func(i int) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}
