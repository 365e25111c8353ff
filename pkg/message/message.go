package message

import "encoding/json"

// Message is one server turn (§3).
type Message struct {
	ID           string
	Role         Role
	Content      []ContentBlock
	StopReason   *StopReason
	StopSequence *string
	Usage        Usage
}

// MessageParam is a client-side message: structurally the same as Message,
// but content may be a plain string or a block sequence (§3).
type MessageParam struct {
	Role    Role
	Content MessageParamContent
}

// MessageParamContent is the string-or-blocks union. Exactly one of Text /
// Blocks is meaningful; IsText reports which.
type MessageParamContent struct {
	text   string
	blocks []ContentBlock
	isText bool
}

// NewTextContent wraps a plain string as message content.
func NewTextContent(text string) MessageParamContent {
	return MessageParamContent{text: text, isText: true}
}

// NewBlockContent wraps a content-block sequence as message content.
func NewBlockContent(blocks ...ContentBlock) MessageParamContent {
	return MessageParamContent{blocks: blocks}
}

func (c MessageParamContent) IsText() bool            { return c.isText }
func (c MessageParamContent) Text() string            { return c.text }
func (c MessageParamContent) Blocks() []ContentBlock  { return c.blocks }

// AsBlocks normalizes content to a block sequence, promoting a plain string
// to a single TextBlock the way the cache-control planner and the merge
// logic require (§4.4 step 5: "if its content is a raw string, promote it").
func (c MessageParamContent) AsBlocks() []ContentBlock {
	if c.isText {
		return []ContentBlock{&TextBlock{Text: c.text}}
	}
	return c.blocks
}

// NewUserMessage and NewAssistantMessage build single-block-sequence params,
// the common case for step_fn/tool result construction.
func NewUserMessage(blocks ...ContentBlock) MessageParam {
	return MessageParam{Role: RoleUser, Content: NewBlockContent(blocks...)}
}

func NewAssistantMessage(blocks ...ContentBlock) MessageParam {
	return MessageParam{Role: RoleAssistant, Content: NewBlockContent(blocks...)}
}

func NewUserText(text string) MessageParam {
	return MessageParam{Role: RoleUser, Content: NewTextContent(text)}
}

// ToParam converts a finished Message into the MessageParam shape needed to
// feed it back into history (assistant turn → client-side param).
func (m Message) ToParam() MessageParam {
	return MessageParam{Role: m.Role, Content: NewBlockContent(m.Content...)}
}

// MarshalJSON renders a MessageParam to wire form: content is a string when
// IsText, otherwise an array of tagged blocks.
func (p MessageParam) MarshalJSON() ([]byte, error) {
	type wire struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	var content json.RawMessage
	var err error
	if p.Content.isText {
		content, err = json.Marshal(p.Content.text)
	} else {
		parts := make([]json.RawMessage, len(p.Content.blocks))
		for i, b := range p.Content.blocks {
			parts[i], err = MarshalContentBlock(b)
			if err != nil {
				return nil, err
			}
		}
		content, err = json.Marshal(parts)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire{Role: p.Role, Content: content})
}

// UnmarshalJSON accepts either content shape on the way back in (e.g. when a
// caller persists and reloads history as JSON).
func (p *MessageParam) UnmarshalJSON(data []byte) error {
	var wire struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	p.Role = wire.Role
	var asString string
	if err := json.Unmarshal(wire.Content, &asString); err == nil {
		p.Content = NewTextContent(asString)
		return nil
	}
	var rawBlocks []json.RawMessage
	if err := json.Unmarshal(wire.Content, &rawBlocks); err != nil {
		return err
	}
	blocks := make([]ContentBlock, len(rawBlocks))
	for i, raw := range rawBlocks {
		b, err := UnmarshalContentBlock(raw)
		if err != nil {
			return err
		}
		blocks[i] = b
	}
	p.Content = NewBlockContent(blocks...)
	return nil
}

// PushOrMerge appends message to history, merging into the tail message when
// roles match instead of rejecting the append (§3 Invariant 1, §8 Invariant
// 5). Merge is block-sequence concatenation: the tail's content blocks become
// old-tail-blocks ++ new-blocks, and history length is unchanged.
//
// Grounded on original_source's Context::push_or_merge_message /
// VecContext (src/combinators.rs), which defines exactly this "merge into
// tail if same role" contract at the free-function level the teacher has no
// analog for (the teacher's ToolLoopAgent appends messages unconditionally).
func PushOrMerge(history []MessageParam, next MessageParam) []MessageParam {
	if len(history) == 0 {
		return append(history, next)
	}
	tail := &history[len(history)-1]
	if tail.Role != next.Role {
		return append(history, next)
	}
	merged := append(append([]ContentBlock{}, tail.Content.AsBlocks()...), next.Content.AsBlocks()...)
	tail.Content = NewBlockContent(merged...)
	return history
}
