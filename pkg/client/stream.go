package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coregen-ai/convo/pkg/internal/httpio"
	"github.com/coregen-ai/convo/pkg/internal/ratectl"
	"github.com/coregen-ai/convo/pkg/internal/sse"
	"github.com/coregen-ai/convo/pkg/message"
	"github.com/coregen-ai/convo/pkg/telemetry"
)

// EventStream is a lazy, single-consumer sequence of message.StreamEvent
// values read from one SSE response body (spec.md §4.1's stream() return
// type). Call Next repeatedly until it returns (nil, nil); always call
// Close.
type EventStream struct {
	body    io.ReadCloser
	decoder *sse.Decoder
	stopped bool
}

// Next returns the next event, or (nil, nil) at a clean end-of-stream
// (message_stop followed by EOF), or a *message.Error for malformed framing
// or a premature disconnection (spec.md §4.2: "UTF-8 decoding errors and
// JSON parse errors surface as Streaming errors without terminating the
// outer HTTP retry — the stream is already past retry").
func (s *EventStream) Next(ctx context.Context) (*message.StreamEvent, *message.Error) {
	if err := ctx.Err(); err != nil {
		return nil, message.NewAbortError(err.Error())
	}

	frame, ferr := s.decoder.Next()
	if ferr == io.EOF {
		if s.stopped {
			return nil, nil
		}
		return nil, message.NewStreamingError("stream ended before message_stop", ferr)
	}
	if ferr != nil {
		return nil, message.NewStreamingError("malformed SSE framing", ferr)
	}

	ev, perr := message.ParseStreamEvent([]byte(frame.Data))
	if perr != nil {
		if merr, ok := perr.(*message.Error); ok {
			return nil, merr
		}
		return nil, message.NewStreamingError("malformed stream event", perr)
	}
	if ev.Type == message.EventMessageStop {
		s.stopped = true
	}
	return &ev, nil
}

// Close releases the underlying HTTP connection. Safe to call multiple
// times and safe to call before the stream is drained (cancellation, per
// spec.md §4.3's "dropping the outer stream cancels in-flight work").
func (s *EventStream) Close() error {
	return s.body.Close()
}

// Stream performs a streaming request (spec.md §4.1 stream()). It validates
// stream=true, retries the *initial connection* on retriable failures
// exactly like Send, then hands back a live EventStream — once bytes start
// arriving, decode errors become Streaming errors on individual Next calls
// rather than further retries (the request already succeeded at the
// transport level). The span covers connection establishment only, not the
// lifetime of the returned stream; per-turn coverage of the stream itself is
// the caller's job (agent.Runtime wraps its turns in their own spans).
func (c *Client) Stream(ctx context.Context, params message.MessageCreateParams) (*EventStream, *message.Error) {
	if verr := params.Validate(true); verr != nil {
		return nil, verr
	}
	body, merr := json.Marshal(params)
	if merr != nil {
		return nil, message.NewSerializationError("encoding request body", merr)
	}

	headers := c.requestHeaders("text/event-stream")
	attrs := telemetry.GetBaseAttributes("anthropic", params.Model, c.settings, headers)
	if c.settings.RecordInputs {
		attrs = append(attrs, attribute.Int("ai.request.messages", len(params.Messages)))
	}

	stream, err := telemetry.RecordSpan(ctx, c.tracer, telemetry.SpanOptions{
		Name:        "convo.client.stream",
		Attributes:  attrs,
		EndWhenDone: true,
	}, func(ctx context.Context, span trace.Span) (*EventStream, error) {
		if c.settings.RecordInputs {
			telemetry.AddSettingsAttributes(span, "ai.settings", samplingSettings(params))
		}
		var httpResp *http.Response
		serr := ratectl.Do(ctx, c.maxRetries, c.backoff, c.observer, func(ctx context.Context) *message.Error {
			resp, herr := c.http.DoStream(ctx, httpio.Request{
				Method:  http.MethodPost,
				Path:    "/v1/messages",
				Body:    body,
				Headers: headers,
			})
			if herr != nil {
				return classifyTransportError(ctx, herr)
			}
			if resp.StatusCode >= 400 {
				errBody, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				return errorFromResponse(resp.StatusCode, resp.Header, errBody)
			}
			httpResp = resp
			return nil
		})
		if serr != nil {
			return nil, serr
		}
		return &EventStream{body: httpResp.Body, decoder: sse.NewDecoder(httpResp.Body)}, nil
	})
	if err != nil {
		return nil, err.(*message.Error)
	}
	return stream, nil
}
