package ratectl

import (
	"context"
	"testing"
	"time"

	"github.com/coregen-ai/convo/pkg/message"
)

func fastBackoff() *Backoff {
	b := NewBackoff(1000, 1000) // high throughput so sleeps stay at a few milliseconds in tests
	b.Jitter = false
	return b
}

func TestDo_SucceedsWithoutRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), 3, fastBackoff(), nil, func(ctx context.Context) *message.Error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_RetriesRetriableErrorsUpToMaxPlusOne(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), 2, fastBackoff(), nil, func(ctx context.Context) *message.Error {
		calls++
		return message.NewServiceUnavailableError("down", nil)
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 3 {
		t.Errorf("expected 3 total attempts (maxRetries+1), got %d", calls)
	}
}

func TestDo_StopsImmediatelyOnNonRetriable(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), 5, fastBackoff(), nil, func(ctx context.Context) *message.Error {
		calls++
		return message.NewAuthenticationError("bad key")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt for a non-retriable error, got %d", calls)
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Do(context.Background(), 3, fastBackoff(), nil, func(ctx context.Context) *message.Error {
		calls++
		if calls < 3 {
			return message.NewTimeoutError("slow", 0)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestFloorByRetryAfter(t *testing.T) {
	t.Parallel()

	retryAfter := 2
	got := FloorByRetryAfter(100*time.Millisecond, &retryAfter)
	if got != 2*time.Second {
		t.Errorf("expected retry-after floor of 2s, got %v", got)
	}

	got = FloorByRetryAfter(5*time.Second, &retryAfter)
	if got != 5*time.Second {
		t.Errorf("expected backoff to win when it exceeds retry-after, got %v", got)
	}
}
