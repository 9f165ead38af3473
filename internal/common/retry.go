package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Veraticus/bucketeer/internal/service"
)

var (
	// ErrRateLimit indicates that the API rate limit has been exceeded.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// WithRetry executes an operation with configurable retry behavior.
// The operation receives the 1-based attempt number. OnFailedAttempt is
// called for every failed attempt that will be retried, never for the last one.
func WithRetry(ctx context.Context, operation func(attempt int) error, opts service.RetryOptions) error {
	opts = opts.WithDefaults()

	var lastErr error
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := operation(attempt)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		if attempt == opts.MaxAttempts {
			break
		}

		delay := Backoff(attempt, opts)
		if errors.Is(err, ErrRateLimit) {
			delay = opts.MaxDelay
		}

		if opts.OnFailedAttempt != nil {
			opts.OnFailedAttempt(attempt, err)
		} else {
			slog.Warn("Operation failed, retrying",
				"attempt", attempt,
				"max_attempts", opts.MaxAttempts,
				"delay", delay,
				"error", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, lastErr)
}

// Backoff returns the delay before the attempt following the given one:
// exponential growth from InitialDelay capped at MaxDelay, with half of the
// delay randomized when jitter is enabled.
func Backoff(attempt int, opts service.RetryOptions) time.Duration {
	delay := opts.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
			break
		}
	}

	if !opts.Jitter || delay <= 1 {
		return delay
	}

	half := delay / 2
	return half + time.Duration(rand.Int64N(int64(half)+1)) // #nosec G404 -- jitter does not need crypto randomness
}
