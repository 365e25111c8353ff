// Package ratectl implements the retry/backoff engine behind pkg/client.
//
// Grounded on pkg/internal/retry/retry.go (Config, Do, calculateDelay,
// IsRetryable), extended per spec.md §4.1/§4.2: the backoff curve is now
// parameterized as "throughput_ops_sec / reserve_capacity" instead of raw
// initial/max durations, retriability is delegated to message.Error.Retriable
// instead of a blanket "retry everything but context cancellation" rule, and
// the server's retry-after header is honored as a floor on sleep duration
// (§8 Testable Property 7).
package ratectl

import (
	"context"
	"math"
	"time"

	"golang.org/x/time/rate"
)

// Backoff is the stateless exponential-backoff generator named in spec.md
// §4.1: Next(attempt) depends only on attempt and the generator's fixed
// parameters, never on prior calls. ThroughputOpsSec and ReserveCapacity
// additionally seed an x/time/rate.Limiter (golang.org/x/time, already a
// teacher dependency) used by Throttle to cap the client's steady-state
// request rate independent of retry backoff.
type Backoff struct {
	ThroughputOpsSec float64
	ReserveCapacity  float64
	Multiplier       float64
	Jitter           bool

	limiter *rate.Limiter
}

// DefaultBackoff mirrors the teacher's DefaultConfig multiplier/jitter
// choices (pkg/internal/retry/retry.go), retargeted onto throughput terms:
// one request/second steady state with a burst of 3.
func DefaultBackoff() *Backoff {
	return NewBackoff(1.0, 3.0)
}

func NewBackoff(throughputOpsSec, reserveCapacity float64) *Backoff {
	if throughputOpsSec <= 0 {
		throughputOpsSec = 1
	}
	if reserveCapacity <= 0 {
		reserveCapacity = 1
	}
	return &Backoff{
		ThroughputOpsSec: throughputOpsSec,
		ReserveCapacity:  reserveCapacity,
		Multiplier:       2.0,
		Jitter:           true,
		limiter:          rate.NewLimiter(rate.Limit(throughputOpsSec), int(math.Ceil(reserveCapacity))),
	}
}

// Throttle blocks until the client-wide steady-state rate budget admits one
// more request. It is independent of, and runs before, any per-attempt
// backoff sleep computed by Next.
func (b *Backoff) Throttle(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// Next computes the backoff duration before retry attempt n (1-indexed: the
// sleep taken after attempt n fails and before attempt n+1). Grounded on
// calculateDelay in pkg/internal/retry/retry.go: same
// base*multiplier^(attempt-1) curve and the same time-based pseudo-jitter,
// retargeted so the base delay and the cap derive from throughput/capacity
// instead of raw duration fields.
func (b *Backoff) Next(attempt int) time.Duration {
	base := time.Duration(float64(time.Second) / b.ThroughputOpsSec)
	delay := float64(base) * math.Pow(b.Multiplier, float64(attempt-1))

	maxDelay := float64(base) * b.ReserveCapacity
	if delay > maxDelay {
		delay = maxDelay
	}

	if b.Jitter {
		jitter := delay * 0.25 * (0.5 + (float64(time.Now().UnixNano()%1000) / 2000.0))
		delay += jitter
	}

	return time.Duration(delay)
}

// FloorByRetryAfter enforces §8 Testable Property 7: the server's
// retry-after, when present, is a lower bound on the sleep, not a
// replacement for the backoff curve.
func FloorByRetryAfter(backoff time.Duration, retryAfterSeconds *int) time.Duration {
	if retryAfterSeconds == nil {
		return backoff
	}
	floor := time.Duration(*retryAfterSeconds) * time.Second
	if floor > backoff {
		return floor
	}
	return backoff
}
