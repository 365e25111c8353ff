package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/coregen-ai/convo/pkg/message"
)

type fakeEventStream struct {
	events []message.StreamEvent
	i      int
}

func (f *fakeEventStream) Next(ctx context.Context) (*message.StreamEvent, *message.Error) {
	if f.i >= len(f.events) {
		return nil, nil
	}
	ev := f.events[f.i]
	f.i++
	return &ev, nil
}

func textTurn(id, text string) []message.StreamEvent {
	endTurn := message.StopEndTurn
	return []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: id}},
		{Type: message.EventContentBlockStart, Index: 0, ContentBlock: &message.TextBlock{}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaText, Text: text}},
		{Type: message.EventContentBlockStop, Index: 0},
		{Type: message.EventMessageDelta, MessageDeltaFields: &message.MessageDelta{StopReason: &endTurn}},
		{Type: message.EventMessageStop},
	}
}

func toolUseTurn(id string, toolIDs ...string) []message.StreamEvent {
	toolUse := message.StopToolUse
	events := []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: id}},
	}
	for i, tid := range toolIDs {
		events = append(events,
			message.StreamEvent{Type: message.EventContentBlockStart, Index: i, ContentBlock: &message.ToolUseBlock{ID: tid, Name: "t"}},
			message.StreamEvent{Type: message.EventContentBlockDelta, Index: i, Delta: &message.ContentBlockDelta{Type: message.DeltaInputJSON, PartialJSON: "{}"}},
			message.StreamEvent{Type: message.EventContentBlockStop, Index: i},
		)
	}
	events = append(events,
		message.StreamEvent{Type: message.EventMessageDelta, MessageDeltaFields: &message.MessageDelta{StopReason: &toolUse}},
		message.StreamEvent{Type: message.EventMessageStop},
	)
	return events
}

func drainAll(t *testing.T, acc interface {
	Next(context.Context) (*message.StreamEvent, *message.Error)
}) {
	t.Helper()
	for {
		ev, err := acc.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected stream error: %v", err)
		}
		if ev == nil {
			return
		}
	}
}

type chatCtx struct {
	*VecContext
	quit bool
}

func TestRuntime_SingleTurn_StopsWhenStepSignalsQuit(t *testing.T) {
	t.Parallel()

	turns := [][]message.StreamEvent{textTurn("m1", "hello")}
	turnIdx := 0

	stepFn := func(ctx context.Context, c Context) (Context, *message.Error) {
		cc := c.(*chatCtx)
		if len(cc.Messages) == 0 {
			cc.PushOrMergeMessage(message.NewUserText("hi"))
			return cc, nil
		}
		cc.quit = true
		return cc, nil
	}
	updateFn := func(ctx context.Context, c Context, m *message.Message) Context {
		cc := c.(*chatCtx)
		cc.PushOrMergeMessage(m.ToParam())
		return cc
	}
	makeStream := func(ctx context.Context, c Context) (EventStream, *message.Error) {
		events := turns[turnIdx]
		turnIdx++
		return &fakeEventStream{events: events}, nil
	}
	shouldStop := func(c Context) bool { return c.(*chatCtx).quit }

	rt := New(&chatCtx{VecContext: NewVecContext()}, stepFn, updateFn, makeStream, shouldStop)

	acc, err := rt.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc == nil {
		t.Fatal("expected the first turn to produce a stream")
	}
	drainAll(t, acc)

	acc2, err := rt.Next(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc2 != nil {
		t.Fatal("expected the runtime to stop after should_stop fires")
	}

	acc3, err := rt.Next(context.Background())
	if err != nil || acc3 != nil {
		t.Fatal("expected subsequent Next calls to keep returning (nil, nil)")
	}
}

func TestRuntime_ToolUse_RunsConcurrentlyAndPreservesOrder(t *testing.T) {
	t.Parallel()

	turns := [][]message.StreamEvent{
		toolUseTurn("m1", "slow", "fast"),
		textTurn("m2", "done"),
	}
	turnIdx := 0

	stepFn := func(ctx context.Context, c Context) (Context, *message.Error) {
		cc := c.(*chatCtx)
		if len(cc.Messages) == 0 {
			cc.PushOrMergeMessage(message.NewUserText("use the tools"))
			return cc, nil
		}
		cc.quit = true
		return cc, nil
	}
	updateFn := func(ctx context.Context, c Context, m *message.Message) Context {
		cc := c.(*chatCtx)
		cc.PushOrMergeMessage(m.ToParam())
		return cc
	}
	makeStream := func(ctx context.Context, c Context) (EventStream, *message.Error) {
		events := turns[turnIdx]
		turnIdx++
		return &fakeEventStream{events: events}, nil
	}
	shouldStop := func(c Context) bool { return c.(*chatCtx).quit }

	handler := func(ctx context.Context, tu *message.ToolUseBlock) (string, error) {
		if tu.ID == "slow" {
			time.Sleep(15 * time.Millisecond)
		}
		return fmt.Sprintf("result-%s", tu.ID), nil
	}

	rt := New(&chatCtx{VecContext: NewVecContext()}, stepFn, updateFn, makeStream, shouldStop, WithTools(handler))

	acc1, err := rt.Next(context.Background())
	if err != nil || acc1 == nil {
		t.Fatalf("expected first tool-use turn, err=%v", err)
	}
	drainAll(t, acc1)

	acc2, err := rt.Next(context.Background())
	if err != nil || acc2 == nil {
		t.Fatalf("expected a follow-up model call after tool execution, err=%v", err)
	}
	drainAll(t, acc2)

	cc := rt.ctx.(*chatCtx)
	var toolResultMsg *message.MessageParam
	for i := range cc.Messages {
		if cc.Messages[i].Role == message.RoleUser && len(cc.Messages[i].Content.Blocks()) == 2 {
			toolResultMsg = &cc.Messages[i]
		}
	}
	if toolResultMsg == nil {
		t.Fatal("expected a tool-result user message with 2 results")
	}
	blocks := toolResultMsg.Content.Blocks()
	first, ok := blocks[0].(*message.ToolResultBlock)
	if !ok || first.ToolUseID != "slow" || first.Content != "result-slow" {
		t.Errorf("expected block order preserved (slow first despite completing second), got %+v", blocks[0])
	}
	second, ok := blocks[1].(*message.ToolResultBlock)
	if !ok || second.ToolUseID != "fast" {
		t.Errorf("expected second block to be the fast tool, got %+v", blocks[1])
	}

	acc3, err := rt.Next(context.Background())
	if err != nil || acc3 != nil {
		t.Fatalf("expected runtime to stop after the follow-up turn, got acc=%v err=%v", acc3, err)
	}
}
