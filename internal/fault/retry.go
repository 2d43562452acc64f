package fault

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy configures Retry.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int

	// BaseDelay is multiplied by the number of failed attempts to obtain
	// the delay before the next one.
	BaseDelay time.Duration

	// ShouldRetry decides whether a failed attempt is retried.
	// Nil means IsRetryable.
	ShouldRetry func(error) bool

	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Operation is an attempt-indexed unit of work. Attempts are numbered from 1.
type Operation func(ctx context.Context, attempt int) error

// linearBackOff implements backoff.BackOff with delay n*base after the
// n-th failure.
type linearBackOff struct {
	base     time.Duration
	failures int64
}

// NextBackOff returns the delay before the next attempt.
func (b *linearBackOff) NextBackOff() time.Duration {
	b.failures++
	return time.Duration(b.failures) * b.base
}

// Reset restarts the failure count.
func (b *linearBackOff) Reset() {
	b.failures = 0
}

// Retry executes op until it succeeds, the predicate rejects the error, the
// attempts are exhausted or ctx is done. The error of the last attempt is
// returned unchanged; a cancelled context is reported as KindTimeout.
//
// The sleep between attempts only blocks the calling goroutine.
func Retry(ctx context.Context, policy RetryPolicy, op Operation) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	shouldRetry := policy.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if !shouldRetry(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, delay)
		}
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(&linearBackOff{base: policy.BaseDelay}, uint64(maxAttempts-1)), //nolint:gosec // maxAttempts >= 1
		ctx,
	)

	err := backoff.RetryNotify(operation, schedule, notify)
	if err != nil && ctx.Err() != nil && err == ctx.Err() {
		return Wrap(KindTimeout, err, "retry aborted").With("attempts", attempt)
	}
	return err
}
