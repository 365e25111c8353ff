package message

import (
	"errors"
	"testing"
)

func TestError_Retriable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *Error
		want bool
	}{
		{"timeout", NewTimeoutError("timed out", 0), true},
		{"rate limit", NewRateLimitError("slow down", nil), true},
		{"authentication", NewAuthenticationError("bad key"), false},
		{"api 429", NewAPIError(429, "", "", ""), true},
		{"api 418", NewAPIError(418, "", "", ""), false},
		{"api 503 via generic path", NewAPIError(503, "", "", ""), true},
		{"bad request", NewBadRequestError("bad field", "model"), false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.err.Retriable(); got != c.want {
				t.Errorf("Retriable() = %v, want %v", got, c.want)
			}
		})
	}
}

func TestFromHTTPStatus(t *testing.T) {
	t.Parallel()

	retryAfter := 2
	cases := []struct {
		status int
		want   ErrorKind
	}{
		{400, KindBadRequest},
		{401, KindAuthentication},
		{403, KindPermission},
		{404, KindNotFound},
		{408, KindTimeout},
		{429, KindRateLimit},
		{529, KindRateLimit},
		{500, KindInternalServer},
		{502, KindServiceUnavailable},
		{503, KindServiceUnavailable},
		{504, KindServiceUnavailable},
		{418, KindAPI},
	}

	for _, c := range cases {
		err := FromHTTPStatus(c.status, "", "msg", "", "req1", &retryAfter)
		if err.Kind != c.want {
			t.Errorf("status %d: got kind %q, want %q", c.status, err.Kind, c.want)
		}
	}
}

func TestError_IsMatchesByKindOnly(t *testing.T) {
	t.Parallel()

	err := NewRateLimitError("slow down", nil)
	if !errors.Is(err, ErrRateLimit) {
		t.Errorf("expected errors.Is to match ErrRateLimit sentinel")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("expected errors.Is not to match ErrTimeout sentinel")
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: connection refused")
	err := NewConnectionError("could not reach host", cause)
	if errors.Unwrap(err) != cause {
		t.Errorf("expected Unwrap to return cause")
	}
}
