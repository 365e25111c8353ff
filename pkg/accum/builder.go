package accum

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/coregen-ai/convo/pkg/message"
)

// blockBuilder accumulates one content block across content_block_start,
// zero or more content_block_delta, and content_block_stop.
type blockBuilder interface {
	applyDelta(d message.ContentBlockDelta)
	finish() message.ContentBlock
}

// builder reconstructs the logical Message for one turn (spec.md §4.2).
type builder struct {
	msg     *message.Message
	indices []int
	blocks  map[int]blockBuilder
}

func newBuilder() *builder {
	return &builder{msg: &message.Message{}, blocks: map[int]blockBuilder{}}
}

func (b *builder) apply(ev message.StreamEvent) {
	switch ev.Type {
	case message.EventMessageStart:
		if ev.Message != nil {
			*b.msg = *ev.Message
		}
	case message.EventContentBlockStart:
		bb := newBlockBuilder(ev.ContentBlock)
		if _, exists := b.blocks[ev.Index]; !exists {
			b.indices = append(b.indices, ev.Index)
		}
		b.blocks[ev.Index] = bb
	case message.EventContentBlockDelta:
		bb, ok := b.blocks[ev.Index]
		if !ok || ev.Delta == nil {
			// §4.3 design note: a delta whose index exceeds any started block is
			// discarded silently, matching the observed source behavior.
			return
		}
		bb.applyDelta(*ev.Delta)
	case message.EventContentBlockStop:
		// Block finalization happens lazily in finalize(); content_block_stop
		// carries no additional payload to apply.
	case message.EventMessageDelta:
		if ev.MessageDeltaFields != nil {
			if ev.MessageDeltaFields.StopReason != nil {
				b.msg.StopReason = ev.MessageDeltaFields.StopReason
			}
			if ev.MessageDeltaFields.StopSequence != nil {
				b.msg.StopSequence = ev.MessageDeltaFields.StopSequence
			}
		}
		if ev.Usage != nil {
			b.msg.Usage.OutputTokens = ev.Usage.OutputTokens
			if ev.Usage.InputTokens != 0 {
				b.msg.Usage.InputTokens = ev.Usage.InputTokens
			}
			if ev.Usage.CacheCreationInputTokens != nil {
				b.msg.Usage.CacheCreationInputTokens = ev.Usage.CacheCreationInputTokens
			}
			if ev.Usage.CacheReadInputTokens != nil {
				b.msg.Usage.CacheReadInputTokens = ev.Usage.CacheReadInputTokens
			}
		}
	case message.EventMessageStop, message.EventPing:
		// no accumulator effect (§4.2)
	}
}

func (b *builder) finalize() *message.Message {
	sort.Ints(b.indices)
	content := make([]message.ContentBlock, 0, len(b.indices))
	for _, i := range b.indices {
		content = append(content, b.blocks[i].finish())
	}
	b.msg.Content = content
	return b.msg
}

func newBlockBuilder(seed message.ContentBlock) blockBuilder {
	switch v := seed.(type) {
	case *message.TextBlock:
		return &textBuilder{text: v.Text, citations: append([]message.Citation{}, v.Citations...)}
	case *message.ToolUseBlock:
		// §4.2: "Ignore the seed input value (the server sends {} there)".
		return &toolUseBuilder{id: v.ID, name: v.Name}
	case *message.ThinkingBlock:
		return &thinkingBuilder{thinking: v.Thinking, signature: v.Signature}
	case *message.RedactedThinkingBlock, *message.ServerToolUseBlock:
		return &passthroughBuilder{block: seed}
	default:
		return &passthroughBuilder{block: seed}
	}
}

type textBuilder struct {
	text      string
	citations []message.Citation
}

func (t *textBuilder) applyDelta(d message.ContentBlockDelta) {
	switch d.Type {
	case message.DeltaText:
		t.text += d.Text
	case message.DeltaCitations:
		t.citations = append(t.citations, message.Citation{Raw: d.Citation})
	}
}

func (t *textBuilder) finish() message.ContentBlock {
	return &message.TextBlock{Text: t.text, Citations: t.citations}
}

// toolUseBuilder implements §4.2/§8 Property 8: concatenated partial_json is
// parsed once at block-stop; a malformed concatenation becomes JSON null,
// never a stream error. A general-purpose JSON repair library (as used
// elsewhere in the teacher's pack for streaming structured-output recovery)
// would actively violate this — repairing malformed input into something
// parseable is the opposite of the spec'd null-on-malformed contract — so
// this builder deliberately uses encoding/json directly with no repair step.
type toolUseBuilder struct {
	id, name string
	partial  strings.Builder
}

func (t *toolUseBuilder) applyDelta(d message.ContentBlockDelta) {
	if d.Type == message.DeltaInputJSON {
		t.partial.WriteString(d.PartialJSON)
	}
}

func (t *toolUseBuilder) finish() message.ContentBlock {
	raw := t.partial.String()
	var v interface{}
	input := json.RawMessage("null")
	if raw != "" && json.Unmarshal([]byte(raw), &v) == nil {
		input = json.RawMessage(raw)
	}
	return &message.ToolUseBlock{ID: t.id, Name: t.name, Input: input}
}

type thinkingBuilder struct {
	thinking, signature string
}

func (t *thinkingBuilder) applyDelta(d message.ContentBlockDelta) {
	switch d.Type {
	case message.DeltaThinking:
		t.thinking += d.Thinking
	case message.DeltaSignature:
		t.signature += d.Signature
	}
}

func (t *thinkingBuilder) finish() message.ContentBlock {
	return &message.ThinkingBlock{Thinking: t.thinking, Signature: t.signature}
}

// passthroughBuilder covers ServerToolUse, RedactedThinking, Image,
// Document, ToolResult, WebSearchToolResult, and RawBlock: variants §4.2
// says are "delivered complete in content_block_start" with no streaming
// deltas of their own. Any delta that does arrive for one is silently
// discarded (variant mismatch protection, §4.2).
type passthroughBuilder struct {
	block message.ContentBlock
}

func (p *passthroughBuilder) applyDelta(message.ContentBlockDelta) {}

func (p *passthroughBuilder) finish() message.ContentBlock { return p.block }
