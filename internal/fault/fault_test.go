package fault

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// TestErrorFormatting tests Error() output and context handling.
func TestErrorFormatting(t *testing.T) {
	t.Parallel()

	t.Run("includes kind and message", func(t *testing.T) {
		t.Parallel()

		err := New(KindNotFound, "page missing")
		if got := err.Error(); got != "NOT_FOUND: page missing" {
			t.Errorf("unexpected message %q", got)
		}
		if err.Status != 404 {
			t.Errorf("expected default status 404, got %d", err.Status)
		}
	})

	t.Run("context keys are sorted", func(t *testing.T) {
		t.Parallel()

		err := New(KindParse, "bad").With("url", "http://x").With("attempt", 2)
		got := err.Error()
		if !strings.Contains(got, "(attempt=2, url=http://x)") {
			t.Errorf("expected sorted context, got %q", got)
		}
	})

	t.Run("includes cause", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("connection reset")
		err := Wrap(KindNetwork, cause, "fetch failed")
		if !strings.HasSuffix(err.Error(), ": connection reset") {
			t.Errorf("expected cause suffix, got %q", err.Error())
		}
		if !errors.Is(err, cause) {
			t.Error("expected errors.Is to find the cause")
		}
	})

	t.Run("WithStatus overrides default", func(t *testing.T) {
		t.Parallel()

		err := New(KindNetwork, "forbidden").WithStatus(0)
		if err.Status != 0 {
			t.Errorf("expected status 0, got %d", err.Status)
		}
	})
}

// TestErrorMatching tests errors.Is/As integration and helpers.
func TestErrorMatching(t *testing.T) {
	t.Parallel()

	wrapped := errors.Join(errors.New("outer"), New(KindTimeout, "slow"))

	if !errors.Is(wrapped, New(KindTimeout, "")) {
		t.Error("expected errors.Is to match by kind")
	}
	if errors.Is(wrapped, New(KindServer, "")) {
		t.Error("expected errors.Is not to match a different kind")
	}
	if KindOf(wrapped) != KindTimeout {
		t.Errorf("expected KindTimeout, got %s", KindOf(wrapped))
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Error("expected unclassified errors to report KindInternal")
	}
	if KindOf(nil) != "" {
		t.Error("expected empty kind for nil")
	}
	if !IsKind(wrapped, KindTimeout) || IsKind(wrapped, KindParse) {
		t.Error("IsKind returned unexpected result")
	}
}

// TestIsRetryable tests the default retry predicate.
func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want bool
	}{
		{New(KindNetwork, ""), true},
		{New(KindTimeout, ""), true},
		{New(KindServer, ""), true},
		{New(KindNotFound, ""), false},
		{New(KindValidation, ""), false},
		{New(KindParse, ""), false},
		{New(KindInvalidInput, ""), false},
		{New(KindInternal, ""), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(KindOf(tt.err).String(), func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

// TestRetry tests the retry executor.
func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("returns nil on first success", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, func(_ context.Context, _ int) error {
			calls++
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("uses linear delays", func(t *testing.T) {
		t.Parallel()

		base := 2 * time.Millisecond
		var delays []time.Duration
		var attempts []int

		policy := RetryPolicy{
			MaxAttempts: 4,
			BaseDelay:   base,
			OnRetry: func(_ int, _ error, delay time.Duration) {
				delays = append(delays, delay)
			},
		}

		err := Retry(context.Background(), policy, func(_ context.Context, attempt int) error {
			attempts = append(attempts, attempt)
			return New(KindServer, "boom")
		})
		if !IsKind(err, KindServer) {
			t.Fatalf("expected server error, got %v", err)
		}

		wantAttempts := []int{1, 2, 3, 4}
		if len(attempts) != len(wantAttempts) {
			t.Fatalf("expected attempts %v, got %v", wantAttempts, attempts)
		}
		for i := range wantAttempts {
			if attempts[i] != wantAttempts[i] {
				t.Errorf("attempt %d: expected %d, got %d", i, wantAttempts[i], attempts[i])
			}
		}

		wantDelays := []time.Duration{base, 2 * base, 3 * base}
		if len(delays) != len(wantDelays) {
			t.Fatalf("expected delays %v, got %v", wantDelays, delays)
		}
		for i := range wantDelays {
			if delays[i] != wantDelays[i] {
				t.Errorf("delay %d: expected %v, got %v", i, wantDelays[i], delays[i])
			}
		}
	})

	t.Run("returns last error unchanged", func(t *testing.T) {
		t.Parallel()

		var last *Error
		err := Retry(context.Background(), RetryPolicy{MaxAttempts: 2}, func(_ context.Context, attempt int) error {
			last = New(KindNetwork, "down").With("attempt", attempt)
			return last
		})

		var got *Error
		if !errors.As(err, &got) {
			t.Fatalf("expected *Error, got %T", err)
		}
		if got != last {
			t.Error("expected the exact error of the last attempt")
		}
	})

	t.Run("does not retry not found", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), RetryPolicy{MaxAttempts: 5}, func(_ context.Context, _ int) error {
			calls++
			return New(KindNotFound, "missing")
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		if !IsKind(err, KindNotFound) {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("custom predicate", func(t *testing.T) {
		t.Parallel()

		calls := 0
		policy := RetryPolicy{
			MaxAttempts: 3,
			ShouldRetry: func(err error) bool { return IsKind(err, KindParse) },
		}
		_ = Retry(context.Background(), policy, func(_ context.Context, _ int) error {
			calls++
			return New(KindParse, "again")
		})
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		t.Parallel()

		calls := 0
		_ = Retry(context.Background(), RetryPolicy{}, func(_ context.Context, _ int) error {
			calls++
			return New(KindNetwork, "x")
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("cancelled context aborts as timeout", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := Retry(ctx, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, func(_ context.Context, _ int) error {
			calls++
			cancel()
			return New(KindNetwork, "x")
		})
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
		if !IsKind(err, KindTimeout) {
			t.Errorf("expected timeout error, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected wrapped context.Canceled, got %v", err)
		}
	})
}
