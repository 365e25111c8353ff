package telemetry

import (
	"testing"
	"time"

	"github.com/coregen-ai/convo/pkg/internal/ratectl"
	"github.com/coregen-ai/convo/pkg/message"
)

func TestMetricsObserver_SatisfiesRatectlObserver(t *testing.T) {
	t.Parallel()

	obs, err := NewMetricsObserver(DefaultSettings())
	if err != nil {
		t.Fatalf("unexpected error building observer: %v", err)
	}
	var _ ratectl.Observer = obs

	obs.RequestStarted()
	obs.RequestError(message.NewTimeoutError("timed out", 60*time.Second))
	obs.RetryPerformed()
	obs.RetryBackoffSecondsAccumulated(1.5)
	obs.RequestDuration(250 * time.Millisecond)
}

func TestMetricsObserver_DisabledSettingsStillUsable(t *testing.T) {
	t.Parallel()

	obs, err := NewMetricsObserver(nil)
	if err != nil {
		t.Fatalf("unexpected error building observer with nil settings: %v", err)
	}
	obs.RequestStarted()
}
