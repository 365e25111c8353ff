package message

import "encoding/json"

// ThinkingMode is disabled | adaptive | enabled-with-budget (§3).
type ThinkingMode string

const (
	ThinkingDisabled ThinkingMode = "disabled"
	ThinkingAdaptive ThinkingMode = "adaptive"
	ThinkingEnabled  ThinkingMode = "enabled"
)

// ThinkingConfig configures extended thinking.
type ThinkingConfig struct {
	Mode         ThinkingMode
	BudgetTokens int // only meaningful when Mode == ThinkingEnabled
}

func (c ThinkingConfig) MarshalJSON() ([]byte, error) {
	switch c.Mode {
	case ThinkingEnabled:
		return json.Marshal(map[string]interface{}{"type": "enabled", "budget_tokens": c.BudgetTokens})
	case ThinkingAdaptive:
		return json.Marshal(map[string]interface{}{"type": "adaptive"})
	default:
		return json.Marshal(map[string]interface{}{"type": "disabled"})
	}
}

// ToolChoiceType mirrors the teacher's ToolChoiceType constants
// (pkg/provider/types/tool.go) — auto/none/any/tool.
type ToolChoiceType string

const (
	ToolChoiceAuto     ToolChoiceType = "auto"
	ToolChoiceNone     ToolChoiceType = "none"
	ToolChoiceAny      ToolChoiceType = "any"
	ToolChoiceTool     ToolChoiceType = "tool"
)

type ToolChoice struct {
	Type                   ToolChoiceType
	Name                   string // only for ToolChoiceTool
	DisableParallelToolUse bool
}

func (c ToolChoice) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{"type": c.Type}
	if c.Type == ToolChoiceTool {
		m["name"] = c.Name
	}
	if c.DisableParallelToolUse {
		m["disable_parallel_tool_use"] = true
	}
	return json.Marshal(m)
}

// Tool is one tool definition in a request.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

func (t Tool) MarshalJSON() ([]byte, error) {
	schema := t.InputSchema
	if schema == nil {
		schema = json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return json.Marshal(map[string]interface{}{
		"name":         t.Name,
		"description":  t.Description,
		"input_schema": schema,
	})
}

// SystemPrompt is either a plain string or a vector of cacheable text blocks.
type SystemPrompt struct {
	text   string
	blocks []*TextBlock
	isText bool
}

func NewSystemText(text string) SystemPrompt { return SystemPrompt{text: text, isText: true} }

func NewSystemBlocks(blocks ...*TextBlock) SystemPrompt { return SystemPrompt{blocks: blocks} }

func (s SystemPrompt) IsText() bool        { return s.isText }
func (s SystemPrompt) Blocks() []*TextBlock { return s.blocks }

// CountCacheControls counts cache_control markers on the system prompt, used
// by the cache-control planner to compute its budget (§4.4 step 1).
func (s SystemPrompt) CountCacheControls() int {
	n := 0
	for _, b := range s.blocks {
		if b.CacheControl != nil {
			n++
		}
	}
	return n
}

func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.isText {
		return json.Marshal(s.text)
	}
	return json.Marshal(s.blocks)
}

// MessageCreateParams is the full request body (§3).
type MessageCreateParams struct {
	Model         string
	MaxTokens     int
	Messages      []MessageParam
	System        *SystemPrompt
	Tools         []Tool
	ToolChoice    *ToolChoice
	Temperature   *float64
	TopP          *float64
	TopK          *int
	StopSequences []string
	Thinking      *ThinkingConfig
	Metadata      map[string]string
	Stream        bool
}

// Validate enforces §3 Invariant 4 (stream flag must match transport) before
// any network call is made.
func (p MessageCreateParams) Validate(wantStream bool) *Error {
	if p.Stream != wantStream {
		return NewValidationError("stream field does not match the chosen transport", "stream")
	}
	if p.Thinking != nil && p.Thinking.Mode == ThinkingEnabled && p.Temperature != nil {
		return NewValidationError("temperature is not permitted with thinking enabled", "temperature")
	}
	if p.Thinking != nil && p.Thinking.Mode == ThinkingEnabled && p.Thinking.BudgetTokens >= p.MaxTokens {
		return NewValidationError("thinking.budget_tokens must be less than max_tokens", "thinking.budget_tokens")
	}
	return nil
}

func (p MessageCreateParams) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"model":      p.Model,
		"max_tokens": p.MaxTokens,
		"messages":   p.Messages,
		"stream":     p.Stream,
	}
	if p.System != nil {
		m["system"] = p.System
	}
	if len(p.Tools) > 0 {
		m["tools"] = p.Tools
	}
	if p.ToolChoice != nil {
		m["tool_choice"] = p.ToolChoice
	}
	if p.Temperature != nil {
		m["temperature"] = *p.Temperature
	}
	if p.TopP != nil {
		m["top_p"] = *p.TopP
	}
	if p.TopK != nil {
		m["top_k"] = *p.TopK
	}
	if len(p.StopSequences) > 0 {
		m["stop_sequences"] = p.StopSequences
	}
	if p.Thinking != nil {
		m["thinking"] = p.Thinking
	}
	if len(p.Metadata) > 0 {
		m["metadata"] = p.Metadata
	}
	return json.Marshal(m)
}
