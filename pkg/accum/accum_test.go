package accum

import (
	"context"
	"testing"

	"github.com/coregen-ai/convo/pkg/message"
)

type fakeSource struct {
	events []message.StreamEvent
	i      int
}

func (f *fakeSource) Next(ctx context.Context) (*message.StreamEvent, *message.Error) {
	if f.i >= len(f.events) {
		return nil, nil
	}
	ev := f.events[f.i]
	f.i++
	return &ev, nil
}

func textEvents() []message.StreamEvent {
	usage := message.Usage{InputTokens: 10}
	endTurn := message.StopEndTurn
	return []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: "m1", Usage: usage}},
		{Type: message.EventContentBlockStart, Index: 0, ContentBlock: &message.TextBlock{Text: ""}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaText, Text: "Hi"}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaText, Text: " there"}},
		{Type: message.EventContentBlockStop, Index: 0},
		{Type: message.EventMessageDelta, MessageDeltaFields: &message.MessageDelta{StopReason: &endTurn}, Usage: &message.Usage{OutputTokens: 2}},
		{Type: message.EventMessageStop},
	}
}

func TestAccumulatingStream_ScenarioA_SingleShotText(t *testing.T) {
	t.Parallel()

	src := &fakeSource{events: textEvents()}
	a := New(src)

	var passedThrough []message.StreamEventType
	for {
		ev, err := a.Next(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ev == nil {
			break
		}
		passedThrough = append(passedThrough, ev.Type)
	}
	if len(passedThrough) != len(textEvents()) {
		t.Fatalf("expected pass-through of all %d events, got %d", len(textEvents()), len(passedThrough))
	}

	select {
	case m := <-a.Done():
		if m.ID != "m1" {
			t.Errorf("expected id m1, got %q", m.ID)
		}
		if len(m.Content) != 1 {
			t.Fatalf("expected 1 content block, got %d", len(m.Content))
		}
		text, ok := m.Content[0].(*message.TextBlock)
		if !ok || text.Text != "Hi there" {
			t.Errorf("expected accumulated text 'Hi there', got %+v", m.Content[0])
		}
		if m.Usage.InputTokens != 10 || m.Usage.OutputTokens != 2 {
			t.Errorf("unexpected usage: %+v", m.Usage)
		}
		if m.StopReason == nil || *m.StopReason != message.StopEndTurn {
			t.Errorf("expected stop reason end_turn, got %v", m.StopReason)
		}
	default:
		t.Fatal("expected Done to have fired")
	}
}

func TestAccumulatingStream_ToolUseInputParsedAtBlockStop(t *testing.T) {
	t.Parallel()

	events := []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: "m1"}},
		{Type: message.EventContentBlockStart, Index: 0, ContentBlock: &message.ToolUseBlock{ID: "t1", Name: "search", Input: []byte(`{}`)}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaInputJSON, PartialJSON: `{"q":"te`}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaInputJSON, PartialJSON: `st"}`}},
		{Type: message.EventContentBlockStop, Index: 0},
		{Type: message.EventMessageStop},
	}
	m, err := Drain(context.Background(), &fakeSource{events: events})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu, ok := m.Content[0].(*message.ToolUseBlock)
	if !ok {
		t.Fatalf("expected ToolUseBlock, got %T", m.Content[0])
	}
	if string(tu.Input) != `{"q":"test"}` {
		t.Errorf("expected reassembled input, got %s", tu.Input)
	}
}

func TestAccumulatingStream_MalformedToolInputBecomesNull(t *testing.T) {
	t.Parallel()

	events := []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: "m1"}},
		{Type: message.EventContentBlockStart, Index: 0, ContentBlock: &message.ToolUseBlock{ID: "t1", Name: "search"}},
		{Type: message.EventContentBlockDelta, Index: 0, Delta: &message.ContentBlockDelta{Type: message.DeltaInputJSON, PartialJSON: `{not json`}},
		{Type: message.EventContentBlockStop, Index: 0},
		{Type: message.EventMessageStop},
	}
	m, err := Drain(context.Background(), &fakeSource{events: events})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tu := m.Content[0].(*message.ToolUseBlock)
	if string(tu.Input) != "null" {
		t.Errorf("expected JSON null for malformed input, got %s", tu.Input)
	}
}

func TestAccumulatingStream_DeltaForUnstartedIndexDiscarded(t *testing.T) {
	t.Parallel()

	events := []message.StreamEvent{
		{Type: message.EventMessageStart, Message: &message.Message{ID: "m1"}},
		{Type: message.EventContentBlockDelta, Index: 5, Delta: &message.ContentBlockDelta{Type: message.DeltaText, Text: "orphan"}},
		{Type: message.EventMessageStop},
	}
	m, err := Drain(context.Background(), &fakeSource{events: events})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(m.Content) != 0 {
		t.Errorf("expected no content blocks, got %+v", m.Content)
	}
}
