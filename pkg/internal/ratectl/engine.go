package ratectl

import (
	"context"
	"time"

	"github.com/coregen-ai/convo/pkg/message"
)

// Observer receives the four counters plus the duration histogram sample
// named in spec.md §4.1 ("these counters are externally defined; the client
// calls them unconditionally"). Grounded on the teacher's RecordSpan/
// GetBaseAttributes pattern (pkg/telemetry/span.go) generalized from
// tracing-only to the metrics shape the spec asks for — see pkg/telemetry
// for the OTel-backed implementation; NoopObserver is the zero-dependency
// default.
type Observer interface {
	RequestStarted()
	RequestError(*message.Error)
	RetryPerformed()
	RetryBackoffSecondsAccumulated(seconds float64)
	RequestDuration(d time.Duration)
}

type NoopObserver struct{}

func (NoopObserver) RequestStarted()                             {}
func (NoopObserver) RequestError(*message.Error)                 {}
func (NoopObserver) RetryPerformed()                              {}
func (NoopObserver) RetryBackoffSecondsAccumulated(float64)       {}
func (NoopObserver) RequestDuration(time.Duration)                {}

// Attempt performs one underlying call and returns a *message.Error on
// failure (nil on success).
type Attempt func(ctx context.Context) *message.Error

// Do runs attempt up to maxRetries+1 times total, sleeping between attempts
// per Backoff.Next floored by the error's RetryAfterSeconds, stopping early
// on a non-retriable error. Grounded on retry.Do's attempt-counting shape
// (pkg/internal/retry/retry.go) generalized to use message.Error.Retriable()
// instead of a caller-supplied ShouldRetry predicate, and to avoid wrapping
// the final error in extra context (§7: "all other kinds surface to the
// caller unchanged").
//
// Satisfies §8 Testable Property 6: is_retryable(e) implies up to
// maxRetries+1 total attempts; the last error is returned unchanged on
// exhaustion.
func Do(ctx context.Context, maxRetries int, backoff *Backoff, obs Observer, attempt Attempt) *message.Error {
	if obs == nil {
		obs = NoopObserver{}
	}

	start := time.Now()
	obs.RequestStarted()

	var lastErr *message.Error

	for attemptNum := 1; attemptNum <= maxRetries+1; attemptNum++ {
		if err := ctx.Err(); err != nil {
			lastErr = message.NewAbortError(err.Error())
			break
		}

		if err := backoff.Throttle(ctx); err != nil {
			lastErr = message.NewAbortError(err.Error())
			break
		}

		lastErr = attempt(ctx)
		if lastErr == nil {
			obs.RequestDuration(time.Since(start))
			return nil
		}
		obs.RequestError(lastErr)

		if !lastErr.Retriable() || attemptNum == maxRetries+1 {
			break
		}

		sleep := FloorByRetryAfter(backoff.Next(attemptNum), lastErr.RetryAfterSeconds)
		obs.RetryPerformed()
		obs.RetryBackoffSecondsAccumulated(sleep.Seconds())

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			lastErr = message.NewAbortError(ctx.Err().Error())
			obs.RequestDuration(time.Since(start))
			return lastErr
		case <-timer.C:
		}
	}

	obs.RequestDuration(time.Since(start))
	return lastErr
}
