package message

import "encoding/json"

// StreamEventType discriminates MessageStreamEvent variants (§3).
type StreamEventType string

const (
	EventMessageStart      StreamEventType = "message_start"
	EventMessageDelta      StreamEventType = "message_delta"
	EventMessageStop       StreamEventType = "message_stop"
	EventContentBlockStart StreamEventType = "content_block_start"
	EventContentBlockDelta StreamEventType = "content_block_delta"
	EventContentBlockStop  StreamEventType = "content_block_stop"
	EventPing              StreamEventType = "ping"
)

// DeltaType discriminates ContentBlockDelta variants (§3).
type DeltaType string

const (
	DeltaText       DeltaType = "text_delta"
	DeltaInputJSON  DeltaType = "input_json_delta"
	DeltaThinking   DeltaType = "thinking_delta"
	DeltaSignature  DeltaType = "signature_delta"
	DeltaCitations  DeltaType = "citations_delta"
)

// ContentBlockDelta is one incremental update to a streaming content block.
type ContentBlockDelta struct {
	Type         DeltaType
	Text         string // DeltaText
	PartialJSON  string // DeltaInputJSON
	Thinking     string // DeltaThinking
	Signature    string // DeltaSignature
	Citation     json.RawMessage // DeltaCitations
}

// MessageDelta carries the message-level fields that change mid-stream
// (§4.2: "On message_delta, the accumulator overwrites stop_reason,
// stop_sequence, and usage.output_tokens").
type MessageDelta struct {
	StopReason   *StopReason
	StopSequence *string
}

// StreamEvent is the tagged union the SSE decoder yields and the
// AccumulatingStream passes through verbatim.
type StreamEvent struct {
	Type StreamEventType

	// EventMessageStart
	Message *Message

	// EventContentBlockStart
	Index        int
	ContentBlock ContentBlock

	// EventContentBlockDelta
	Delta *ContentBlockDelta

	// EventMessageDelta
	MessageDeltaFields *MessageDelta
	Usage              *Usage // partial: OutputTokens always overwrites; InputTokens 0 and nil cache counts mean absent

	// EventContentBlockStop / EventContentBlockStart / EventContentBlockDelta share Index above.
}

// rawStreamEvent is the wire JSON shape of the `data:` payload: a `type`
// discriminator plus whichever fields that type uses, mirroring how the
// teacher's anthropicStream.Next() switches on event.Event
// (pkg/providers/anthropic/language_model.go).
type rawStreamEvent struct {
	Type  string          `json:"type"`
	Index *int            `json:"index"`
	Message json.RawMessage `json:"message"`
	ContentBlock json.RawMessage `json:"content_block"`
	Delta json.RawMessage `json:"delta"`
	Usage *struct {
		InputTokens              *int `json:"input_tokens"`
		OutputTokens             *int `json:"output_tokens"`
		CacheCreationInputTokens *int `json:"cache_creation_input_tokens"`
		CacheReadInputTokens     *int `json:"cache_read_input_tokens"`
	} `json:"usage"`
}

// ParseStreamEvent decodes one SSE `data:` JSON payload into a StreamEvent.
func ParseStreamEvent(data []byte) (StreamEvent, error) {
	var raw rawStreamEvent
	if err := json.Unmarshal(data, &raw); err != nil {
		return StreamEvent{}, NewStreamingError("malformed event payload", err)
	}

	ev := StreamEvent{Type: StreamEventType(raw.Type)}
	if raw.Index != nil {
		ev.Index = *raw.Index
	}

	switch ev.Type {
	case EventMessageStart:
		var wrapper struct {
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return StreamEvent{}, NewStreamingError("malformed message_start", err)
		}
		msg, err := parseWireMessage(wrapper.Message)
		if err != nil {
			return StreamEvent{}, err
		}
		ev.Message = msg
	case EventContentBlockStart:
		block, err := UnmarshalContentBlock(raw.ContentBlock)
		if err != nil {
			return StreamEvent{}, NewStreamingError("malformed content_block_start", err)
		}
		ev.ContentBlock = block
	case EventContentBlockDelta:
		delta, err := parseDelta(raw.Delta)
		if err != nil {
			return StreamEvent{}, err
		}
		ev.Delta = delta
	case EventMessageDelta:
		var wrapper struct {
			Delta struct {
				StopReason   *StopReason `json:"stop_reason"`
				StopSequence *string     `json:"stop_sequence"`
			} `json:"delta"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return StreamEvent{}, NewStreamingError("malformed message_delta", err)
		}
		ev.MessageDeltaFields = &MessageDelta{
			StopReason:   wrapper.Delta.StopReason,
			StopSequence: wrapper.Delta.StopSequence,
		}
		if raw.Usage != nil {
			u := &Usage{}
			if raw.Usage.InputTokens != nil {
				u.InputTokens = *raw.Usage.InputTokens
			}
			if raw.Usage.OutputTokens != nil {
				u.OutputTokens = *raw.Usage.OutputTokens
			}
			u.CacheCreationInputTokens = raw.Usage.CacheCreationInputTokens
			u.CacheReadInputTokens = raw.Usage.CacheReadInputTokens
			ev.Usage = u
		}
	case EventContentBlockStop, EventMessageStop, EventPing:
		// no payload fields beyond index
	}
	return ev, nil
}

func parseDelta(raw json.RawMessage) (*ContentBlockDelta, error) {
	if raw == nil {
		return nil, nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, NewStreamingError("malformed delta", err)
	}
	d := &ContentBlockDelta{Type: DeltaType(head.Type)}
	switch d.Type {
	case DeltaText:
		var v struct {
			Text string `json:"text"`
		}
		_ = json.Unmarshal(raw, &v)
		d.Text = v.Text
	case DeltaInputJSON:
		var v struct {
			PartialJSON string `json:"partial_json"`
		}
		_ = json.Unmarshal(raw, &v)
		d.PartialJSON = v.PartialJSON
	case DeltaThinking:
		var v struct {
			Thinking string `json:"thinking"`
		}
		_ = json.Unmarshal(raw, &v)
		d.Thinking = v.Thinking
	case DeltaSignature:
		var v struct {
			Signature string `json:"signature"`
		}
		_ = json.Unmarshal(raw, &v)
		d.Signature = v.Signature
	case DeltaCitations:
		var v struct {
			Citation json.RawMessage `json:"citation"`
		}
		_ = json.Unmarshal(raw, &v)
		d.Citation = v.Citation
	}
	return d, nil
}

// ParseMessage decodes a full non-streaming Messages-API response body (or
// the "message" field of a message_start event) into a Message.
func ParseMessage(raw json.RawMessage) (*Message, error) {
	return parseWireMessage(raw)
}

func parseWireMessage(raw json.RawMessage) (*Message, error) {
	var wire struct {
		ID           string            `json:"id"`
		Role         Role              `json:"role"`
		Content      []json.RawMessage `json:"content"`
		StopReason   *StopReason       `json:"stop_reason"`
		StopSequence *string           `json:"stop_sequence"`
		Usage        Usage             `json:"usage"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, NewStreamingError("malformed message", err)
	}
	blocks := make([]ContentBlock, len(wire.Content))
	for i, raw := range wire.Content {
		b, err := UnmarshalContentBlock(raw)
		if err != nil {
			return nil, NewStreamingError("malformed content block in message_start", err)
		}
		blocks[i] = b
	}
	return &Message{
		ID:           wire.ID,
		Role:         wire.Role,
		Content:      blocks,
		StopReason:   wire.StopReason,
		StopSequence: wire.StopSequence,
		Usage:        wire.Usage,
	}, nil
}
