package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	calls := 0
	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoffExhaustsAttempts(t *testing.T) {
	lastErr := errors.New("still broken")
	calls := 0
	err := RetryWithBackoff(context.Background(), 4, time.Millisecond, func() error {
		calls++
		return lastErr
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, lastErr)
	assert.Equal(t, 4, calls)
}

func TestRetryWithBackoffStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := RetryWithBackoff(ctx, 10, 50*time.Millisecond, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "no further attempts after cancel")
}

func TestRetryWithBackoffRejectsNonPositiveAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), 0, time.Millisecond, func() error { return nil })
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}
