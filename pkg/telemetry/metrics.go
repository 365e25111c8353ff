package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/coregen-ai/convo/pkg/message"
)

// MetricsObserver implements pkg/internal/ratectl.Observer (structurally —
// this package does not import ratectl, avoiding an import cycle) with the
// four counters plus duration histogram spec.md §4.1 names: requests
// started, requests errored (by kind), retries performed, accumulated
// retry-backoff seconds, and request duration.
//
// Grounded on the teacher's telemetry.Settings/GetTracer pair: same
// enabled/disabled gate, same "custom Meter overrides the global one"
// pattern, generalized from tracing to the metrics API.
type MetricsObserver struct {
	requestsStarted   metric.Int64Counter
	requestsErrored   metric.Int64Counter
	retriesPerformed  metric.Int64Counter
	retryBackoffTotal metric.Float64Counter
	requestDuration   metric.Float64Histogram
}

// NewMetricsObserver builds a MetricsObserver from settings. When settings
// is nil or disabled, a no-op meter is used and the returned observer is
// cheap to call unconditionally.
func NewMetricsObserver(settings *Settings) (*MetricsObserver, error) {
	meter := getMeter(settings)

	requestsStarted, err := meter.Int64Counter("convo.client.requests_started",
		metric.WithDescription("Logical requests started; retry attempts are counted by retries_performed"))
	if err != nil {
		return nil, err
	}
	requestsErrored, err := meter.Int64Counter("convo.client.requests_errored",
		metric.WithDescription("Failed attempts, including ones that were retried, by error kind"))
	if err != nil {
		return nil, err
	}
	retriesPerformed, err := meter.Int64Counter("convo.client.retries_performed",
		metric.WithDescription("Retry attempts made after a retriable failure"))
	if err != nil {
		return nil, err
	}
	retryBackoffTotal, err := meter.Float64Counter("convo.client.retry_backoff_seconds_total",
		metric.WithDescription("Cumulative seconds slept between retry attempts"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("convo.client.request_duration_seconds",
		metric.WithDescription("End-to-end duration of one logical request, across all its attempts"), metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &MetricsObserver{
		requestsStarted:   requestsStarted,
		requestsErrored:   requestsErrored,
		retriesPerformed:  retriesPerformed,
		retryBackoffTotal: retryBackoffTotal,
		requestDuration:   requestDuration,
	}, nil
}

func getMeter(settings *Settings) metric.Meter {
	if settings == nil || !settings.IsEnabled {
		return noop.NewMeterProvider().Meter(TracerName)
	}
	return otel.Meter(TracerName)
}

var background = context.Background()

func (o *MetricsObserver) RequestStarted() {
	o.requestsStarted.Add(background, 1)
}

func (o *MetricsObserver) RequestError(err *message.Error) {
	kind := "unknown"
	if err != nil {
		kind = string(err.Kind)
	}
	o.requestsErrored.Add(background, 1, metric.WithAttributes(attribute.String("error.kind", kind)))
}

func (o *MetricsObserver) RetryPerformed() {
	o.retriesPerformed.Add(background, 1)
}

func (o *MetricsObserver) RetryBackoffSecondsAccumulated(seconds float64) {
	o.retryBackoffTotal.Add(background, seconds)
}

func (o *MetricsObserver) RequestDuration(d time.Duration) {
	o.requestDuration.Record(background, d.Seconds())
}
