package agent

import (
	"testing"

	"github.com/coregen-ai/convo/pkg/message"
)

func TestVecContext_PushOrMergeMessage(t *testing.T) {
	t.Parallel()

	c := NewVecContext(message.NewUserText("hi"))
	c.PushOrMergeMessage(message.NewAssistantMessage(&message.TextBlock{Text: "hello"}))
	if len(c.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(c.Messages))
	}

	c.PushOrMergeMessage(message.NewUserMessage(&message.TextBlock{Text: "more"}))
	c.PushOrMergeMessage(message.NewUserMessage(&message.TextBlock{Text: "even more"}))
	if len(c.Messages) != 3 {
		t.Fatalf("expected consecutive user messages to merge into 3 total, got %d", len(c.Messages))
	}
	last := c.Messages[2]
	if len(last.Content.Blocks()) != 2 {
		t.Errorf("expected merged tail to carry both blocks, got %d", len(last.Content.Blocks()))
	}
}

func TestTuple2_OnlyLastComponentWritable(t *testing.T) {
	t.Parallel()

	injected := NewVecContext(message.NewUserText("system-level transcript"))
	working := NewVecContext(message.NewUserText("turn 1"))
	tup := NewTuple2[*VecContext, *VecContext](injected, working)

	tup.PushOrMergeMessage(message.NewAssistantMessage(&message.TextBlock{Text: "reply"}))

	if len(injected.Messages) != 1 {
		t.Errorf("expected the first component to be untouched, got %d messages", len(injected.Messages))
	}
	if len(working.Messages) != 2 {
		t.Errorf("expected the write to land on the second component, got %d messages", len(working.Messages))
	}

	prepared := tup.Prepare()
	if len(prepared) != 2 {
		t.Fatalf("expected the two leading user messages to merge across the seam, giving 2 messages, got %d", len(prepared))
	}
}

func TestTuple3_Prepare_ConcatenatesInOrder(t *testing.T) {
	t.Parallel()

	a := NewVecContext(message.NewUserText("a"))
	b := NewVecContext(message.NewAssistantMessage(&message.TextBlock{Text: "b"}))
	c := NewVecContext(message.NewUserText("c"))
	tup := NewTuple3[*VecContext, *VecContext, *VecContext](a, b, c)

	prepared := tup.Prepare()
	if len(prepared) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(prepared))
	}
	if prepared[0].Role != message.RoleUser || prepared[2].Role != message.RoleUser {
		t.Errorf("unexpected role ordering: %+v", prepared)
	}
}
