package agent

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/coregen-ai/convo/pkg/accum"
	"github.com/coregen-ai/convo/pkg/message"
	"github.com/coregen-ai/convo/pkg/telemetry"
	"github.com/google/uuid"
)

// EventStream is the minimal contract make_stream must return: anything
// whose Next advances through raw stream events, structurally satisfying
// pkg/accum's internal eventSource so it can be wrapped by accum.New
// without either package importing the other's concrete types.
// *client.EventStream implements this.
type EventStream interface {
	Next(ctx context.Context) (*message.StreamEvent, *message.Error)
}

// StepFunc is invoked before each user turn (spec.md §4.3): produce the next
// Context, or return one for which ShouldStopFunc is true to terminate.
type StepFunc func(ctx context.Context, c Context) (Context, *message.Error)

// UpdateFunc is invoked after each user-initiated turn's Message is fully
// accumulated; it owns c and returns the updated Context.
type UpdateFunc func(ctx context.Context, c Context, m *message.Message) Context

// MakeStreamFunc begins the next model call from the current Context.
type MakeStreamFunc func(ctx context.Context, c Context) (EventStream, *message.Error)

// ToolHandlerFunc executes one tool call. A non-nil error becomes a
// tool_result with IsError=true, carrying err.Error() as content.
type ToolHandlerFunc func(ctx context.Context, tu *message.ToolUseBlock) (string, error)

// ShouldStopFunc is the terminal predicate, checked before each user turn.
type ShouldStopFunc func(c Context) bool

// turnKind distinguishes the two states in which the runtime awaits a
// completed Message, matching spec.md §4.3's state-machine table.
type turnKind int

const (
	turnUser turnKind = iota
	turnTool
)

type runKey struct{}

// Runtime drives spec.md §4.3's three-state machine (Initial /
// PendingUserTurn / PendingToolTurn). It is single-threaded cooperative:
// Next must be called to completion (the returned AccumulatingStream fully
// drained) before the next call, mirroring "the caller must fully drain
// turn n before turn n+1 begins."
//
// Grounded on original_source's unfold_with_tools_core state machine
// (futures::stream::unfold over UnfoldState::{Initial,PendingUserTurn,
// PendingToolTurn}), reshaped from a pull-stream-of-futures into a Go
// pull-iterator (repeated Next calls) since Go has no Stream trait.
type Runtime struct {
	runID string

	stepFn      StepFunc
	updateFn    UpdateFunc
	makeStream  MakeStreamFunc
	toolHandler ToolHandlerFunc // nil disables tool handling (plain unfold/unfold_until)
	shouldStop  ShouldStopFunc

	started bool
	stopped bool

	ctx     Context
	pending *accum.AccumulatingStream
	kind    turnKind

	tracer   trace.Tracer
	settings *telemetry.Settings
}

// Option configures a Runtime at construction.
type Option func(*Runtime)

// WithTools enables §4.3's tool-use branch: messages with StopReason ==
// ToolUse have their ToolUse blocks executed concurrently (join-all,
// order-preserved) via handler, and the results appended as a single
// tool_result user message before the next model call.
func WithTools(handler ToolHandlerFunc) Option {
	return func(r *Runtime) { r.toolHandler = handler }
}

// WithTelemetry wraps each turn's beginTurn (the make_stream call) in a span,
// the same tracer/Settings pair pkg/client wires through Send/Stream. Nil
// settings behaves like telemetry.DefaultSettings() (disabled).
func WithTelemetry(settings *telemetry.Settings) Option {
	return func(r *Runtime) {
		r.settings = settings
		r.tracer = telemetry.GetTracer(settings)
	}
}

// New constructs a Runtime implementing spec.md §4.3's unfold /
// unfold_until / unfold_with_tools depending on whether WithTools and a
// non-trivial shouldStop are supplied. shouldStop may be nil, equivalent to
// the original's "constantly false" unbounded case.
func New(initial Context, stepFn StepFunc, updateFn UpdateFunc, makeStream MakeStreamFunc, shouldStop ShouldStopFunc, opts ...Option) *Runtime {
	if shouldStop == nil {
		shouldStop = func(Context) bool { return false }
	}
	r := &Runtime{
		runID:      uuid.New().String(),
		stepFn:     stepFn,
		updateFn:   updateFn,
		makeStream: makeStream,
		shouldStop: shouldStop,
		ctx:        initial,
		settings:   telemetry.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = telemetry.GetTracer(r.settings)
	}
	return r
}

// RunID identifies this runtime instance across its turns, the same
// contextKey/run-ID correlation idiom the teacher's ToolLoopAgent used for
// callback tracing (toolloop.go), carried here since every turn's tool
// handler invocations benefit from a shared correlation id in logs/traces.
func (r *Runtime) RunID() string { return r.runID }

// WithRunID stores id on ctx the way the teacher's ToolLoopAgent threaded a
// generated run id through context.Context for downstream callbacks.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runKey{}, id)
}

// RunIDFromContext retrieves a run id set by WithRunID, or "" if absent.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runKey{}).(string)
	return id
}

// Next advances the state machine by one outer item: it first resolves the
// Message produced by the previously returned AccumulatingStream (if any),
// applies update_fn or a direct push_or_merge per §4.3's table, runs tools
// if applicable, and finally calls make_stream for the next turn. Returns
// (nil, nil) when the runtime has terminated (should_stop fired, or the
// stream ended without producing a turn).
func (r *Runtime) Next(ctx context.Context) (*accum.AccumulatingStream, *message.Error) {
	if r.stopped {
		return nil, nil
	}

	if !r.started {
		r.started = true
		if r.shouldStop(r.ctx) {
			r.stopped = true
			return nil, nil
		}
		next, err := r.stepFn(ctx, r.ctx)
		if err != nil {
			r.stopped = true
			return nil, err
		}
		r.ctx = next
		if r.shouldStop(r.ctx) {
			r.stopped = true
			return nil, nil
		}
		return r.beginTurn(ctx, turnUser)
	}

	m, err := r.resolvePending(ctx)
	if err != nil {
		r.stopped = true
		return nil, err
	}
	if m == nil {
		r.stopped = true
		return nil, nil
	}

	if r.kind == turnUser {
		r.ctx = r.updateFn(ctx, r.ctx, m)
	} else {
		// PendingToolTurn: the assistant message is appended directly, not
		// via update_fn (spec.md §4.3's table, second row).
		r.ctx.PushOrMergeMessage(m.ToParam())
	}

	if r.toolHandler != nil && m.StopReason != nil && *m.StopReason == message.StopToolUse {
		toolResult, _ := telemetry.RecordSpan(ctx, r.tracer, telemetry.SpanOptions{
			Name:        "convo.agent.tool_execution",
			Attributes:  []attribute.KeyValue{attribute.String("ai.agent.run_id", r.runID)},
			EndWhenDone: true,
		}, func(ctx context.Context, span trace.Span) (message.MessageParam, error) {
			return r.runTools(ctx, m), nil
		})
		r.ctx.PushOrMergeMessage(toolResult)
		return r.beginTurn(ctx, turnTool)
	}

	if r.shouldStop(r.ctx) {
		r.stopped = true
		return nil, nil
	}
	next, stepErr := r.stepFn(ctx, r.ctx)
	if stepErr != nil {
		r.stopped = true
		return nil, stepErr
	}
	r.ctx = next
	if r.shouldStop(r.ctx) {
		r.stopped = true
		return nil, nil
	}
	return r.beginTurn(ctx, turnUser)
}

func (r *Runtime) beginTurn(ctx context.Context, kind turnKind) (*accum.AccumulatingStream, *message.Error) {
	name := "convo.agent.turn.user"
	if kind == turnTool {
		name = "convo.agent.turn.tool"
	}
	attrs := []attribute.KeyValue{attribute.String("ai.agent.run_id", r.runID)}

	stream, err := telemetry.RecordSpan(ctx, r.tracer, telemetry.SpanOptions{
		Name:        name,
		Attributes:  attrs,
		EndWhenDone: true,
	}, func(ctx context.Context, span trace.Span) (EventStream, error) {
		s, err := r.makeStream(ctx, r.ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		r.stopped = true
		return nil, err.(*message.Error)
	}
	acc := accum.New(stream)
	r.pending = acc
	r.kind = kind
	return acc, nil
}

// resolvePending awaits the one-shot Done/Err sink of the previously
// returned AccumulatingStream, or ctx cancellation (spec.md §5
// "Cancellation & timeouts": dropping the outer stream cancels subsequent
// work cooperatively).
func (r *Runtime) resolvePending(ctx context.Context) (*message.Message, *message.Error) {
	select {
	case m := <-r.pending.Done():
		return m, nil
	case e := <-r.pending.Err():
		return nil, e
	case <-ctx.Done():
		return nil, message.NewAbortError("agent runtime cancelled while awaiting turn completion")
	}
}

// runTools implements §4.3's tool-execution step and §5's ordering
// guarantee: ToolUse blocks run concurrently (join-all) but results are
// assembled in block order, not completion order.
func (r *Runtime) runTools(ctx context.Context, m *message.Message) message.MessageParam {
	type indexed struct {
		idx int
		tu  *message.ToolUseBlock
	}
	var uses []indexed
	for i, b := range m.Content {
		if tu, ok := b.(*message.ToolUseBlock); ok {
			uses = append(uses, indexed{idx: i, tu: tu})
		}
	}

	results := make([]*message.ToolResultBlock, len(uses))
	var wg sync.WaitGroup
	wg.Add(len(uses))
	for i, u := range uses {
		go func(i int, u indexed) {
			defer wg.Done()
			text, err := r.toolHandler(ctx, u.tu)
			isError := err != nil
			if isError {
				text = err.Error()
			}
			results[i] = &message.ToolResultBlock{
				ToolUseID: u.tu.ID,
				Content:   text,
				IsError:   isError,
			}
		}(i, u)
	}
	wg.Wait()

	blocks := make([]message.ContentBlock, len(results))
	for i, res := range results {
		blocks[i] = res
	}
	return message.NewUserMessage(blocks...)
}
