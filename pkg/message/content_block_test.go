package message

import (
	"encoding/json"
	"testing"
)

func TestTextBlock_Type(t *testing.T) {
	t.Parallel()

	b := &TextBlock{Text: "hi"}
	if b.Type() != BlockText {
		t.Errorf("expected %q, got %q", BlockText, b.Type())
	}
}

func TestMarshalUnmarshalContentBlock_RoundTrip(t *testing.T) {
	t.Parallel()

	cases := []ContentBlock{
		&TextBlock{Text: "hello", CacheControl: EphemeralCacheControl()},
		&ToolUseBlock{ID: "t1", Name: "search", Input: json.RawMessage(`{"q":"x"}`)},
		&ToolResultBlock{ToolUseID: "t1", Content: "ok", IsError: false},
		&ThinkingBlock{Thinking: "reasoning...", Signature: "sig"},
		&RedactedThinkingBlock{Data: "opaque"},
	}

	for _, want := range cases {
		raw, err := MarshalContentBlock(want)
		if err != nil {
			t.Fatalf("marshal %T: %v", want, err)
		}
		got, err := UnmarshalContentBlock(raw)
		if err != nil {
			t.Fatalf("unmarshal %T: %v", want, err)
		}
		if got.Type() != want.Type() {
			t.Errorf("type mismatch: want %q got %q", want.Type(), got.Type())
		}
	}
}

func TestUnmarshalContentBlock_UnknownTypePassesThrough(t *testing.T) {
	t.Parallel()

	raw := json.RawMessage(`{"type":"future_block","payload":42}`)
	b, err := UnmarshalContentBlock(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rb, ok := b.(*RawBlock)
	if !ok {
		t.Fatalf("expected *RawBlock, got %T", b)
	}
	if rb.Type() != "future_block" {
		t.Errorf("expected future_block, got %q", rb.Type())
	}
}

func TestToolUseBlock_NilInputMarshalsToNull(t *testing.T) {
	t.Parallel()

	raw, err := MarshalContentBlock(&ToolUseBlock{ID: "t1", Name: "search"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded struct {
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(decoded.Input) != "null" {
		t.Errorf("expected null input, got %s", decoded.Input)
	}
}
