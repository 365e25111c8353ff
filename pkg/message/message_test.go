package message

import "testing"

func TestPushOrMerge_DifferentRoleAppends(t *testing.T) {
	t.Parallel()

	history := []MessageParam{NewUserText("hi")}
	history = PushOrMerge(history, NewAssistantMessage(&TextBlock{Text: "hello"}))
	if len(history) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history))
	}
}

func TestPushOrMerge_SameRoleMergesWithoutGrowingLength(t *testing.T) {
	t.Parallel()

	history := []MessageParam{NewUserMessage(&TextBlock{Text: "a"})}
	history = PushOrMerge(history, NewUserMessage(&TextBlock{Text: "b"}))

	if len(history) != 1 {
		t.Fatalf("expected history length to stay 1, got %d", len(history))
	}
	blocks := history[0].Content.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("expected tail to carry 2 concatenated blocks, got %d", len(blocks))
	}
	if blocks[0].(*TextBlock).Text != "a" || blocks[1].(*TextBlock).Text != "b" {
		t.Errorf("expected concatenation order a, b; got %v", blocks)
	}
}

func TestPushOrMerge_EmptyHistory(t *testing.T) {
	t.Parallel()

	history := PushOrMerge(nil, NewUserText("hi"))
	if len(history) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history))
	}
}

func TestMessageParamContent_AsBlocksPromotesString(t *testing.T) {
	t.Parallel()

	c := NewTextContent("hello")
	blocks := c.AsBlocks()
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	tb, ok := blocks[0].(*TextBlock)
	if !ok || tb.Text != "hello" {
		t.Errorf("expected promoted TextBlock with text 'hello', got %#v", blocks[0])
	}
}
