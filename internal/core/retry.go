package core

import (
	"context"
	"time"
)

// RetryWithBackoff runs op up to maxAttempts times, doubling baseDelay
// between attempts. It exists for the "just-created row might not be visible
// yet" gap between asset creation and ingestion, but is generic over any
// retryable operation. Returns the last error when all attempts fail.
func RetryWithBackoff(ctx context.Context, maxAttempts int, baseDelay time.Duration, op func() error) error {
	if maxAttempts <= 0 {
		return Errorf(KindValidation, nil, "maxAttempts must be positive, got %d", maxAttempts)
	}

	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
	return lastErr
}
