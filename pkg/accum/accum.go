// Package accum implements the SSE → Message accumulator (spec.md §4.2):
// AccumulatingStream passes every event through to the consumer unchanged
// while reconstructing the turn's final Message in a private builder,
// delivered through a one-shot channel when the stream ends cleanly.
//
// Grounded on the teacher's streaming accumulation shape in
// pkg/providers/anthropic/language_model.go's DoStream (which builds a
// *types.GenerateResult from a sequence of provider stream events inline,
// without separating "pass-through" from "accumulate" as two concerns) —
// generalized here into a standalone transformer per spec.md §4.2, since
// the teacher couples accumulation to one provider's DoStream rather than
// offering it as a reusable stream combinator.
package accum

import (
	"context"

	"github.com/coregen-ai/convo/pkg/message"
)

// eventSource is the minimal contract accum needs from a live event
// stream — satisfied by *client.EventStream without an import cycle back
// to pkg/client.
type eventSource interface {
	Next(ctx context.Context) (*message.StreamEvent, *message.Error)
}

// AccumulatingStream wraps a raw event source, accumulating a Message
// while handing every event back to the caller via Next.
type AccumulatingStream struct {
	src     eventSource
	builder *builder
	done    chan *message.Message
	errCh   chan *message.Error
	fired   bool
}

// New pairs src with a fresh builder. Exactly one of the Done/Err channels
// receives a value once the stream finishes — Done on clean completion, Err
// (with Done left un-fired) on failure. Neither fires if the
// AccumulatingStream is abandoned before completion (spec.md §4.2: "if the
// stream ends in error or is dropped early, the sink is dropped un-fired").
func New(src eventSource) *AccumulatingStream {
	return &AccumulatingStream{
		src:     src,
		builder: newBuilder(),
		done:    make(chan *message.Message, 1),
		errCh:   make(chan *message.Error, 1),
	}
}

// Next passes through the next event unchanged, feeding it to the private
// builder first. Returns (nil, nil) at clean end-of-stream, after which
// Done/Err receive the accumulated result.
func (a *AccumulatingStream) Next(ctx context.Context) (*message.StreamEvent, *message.Error) {
	ev, err := a.src.Next(ctx)
	if err != nil {
		if !a.fired {
			a.fired = true
			a.errCh <- err
		}
		return nil, err
	}
	if ev == nil {
		if !a.fired {
			a.fired = true
			a.done <- a.builder.finalize()
		}
		return nil, nil
	}
	a.builder.apply(*ev)
	return ev, nil
}

// Done is the one-shot sink of spec.md §4.2: receives the finalized Message
// exactly once, only on clean completion.
func (a *AccumulatingStream) Done() <-chan *message.Message { return a.done }

// Err receives the terminal error exactly once, only on failed completion.
func (a *AccumulatingStream) Err() <-chan *message.Error { return a.errCh }

// Drain consumes the stream to exhaustion, discarding events, and returns
// the accumulated Message — the common case for callers that only want the
// final result and not per-event rendering.
func Drain(ctx context.Context, src eventSource) (*message.Message, *message.Error) {
	a := New(src)
	for {
		ev, err := a.Next(ctx)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			break
		}
	}
	select {
	case m := <-a.Done():
		return m, nil
	case e := <-a.Err():
		return nil, e
	default:
		return nil, message.NewStreamingError("stream ended without a terminal sink value", nil)
	}
}
