package message

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// BlockType identifies a ContentBlock variant on the wire.
type BlockType string

const (
	BlockText                 BlockType = "text"
	BlockImage                BlockType = "image"
	BlockDocument             BlockType = "document"
	BlockToolUse              BlockType = "tool_use"
	BlockServerToolUse        BlockType = "server_tool_use"
	BlockToolResult           BlockType = "tool_result"
	BlockWebSearchToolResult  BlockType = "web_search_tool_result"
	BlockThinking             BlockType = "thinking"
	BlockRedactedThinking     BlockType = "redacted_thinking"
)

// ContentBlock is the tagged-variant interface over the set named in
// SPEC_FULL.md §3 (Text, Image, ToolUse, ServerToolUse, ToolResult,
// WebSearchToolResult, Document, Thinking, RedactedThinking), plus RawBlock
// for forward-compatible passthrough of block types the core doesn't model.
//
// Grounded on the teacher's ContentPart interface
// (pkg/provider/types/message.go: "type ContentPart interface { ContentType()
// string }") — generalized here to a closed wire taxonomy with cache_control
// support, since the teacher's ContentPart is an SDK-internal abstraction
// with no wire marshaling concerns.
type ContentBlock interface {
	Type() BlockType
}

// Cacheable is implemented by the block variants that may carry a
// cache_control marker: Text, Image, Document, ToolUse, ToolResult, and
// RawBlock. The cache-control planner narrows user-message markers further
// to Text, ToolUse, and ToolResult (§4.4). Thinking, RedactedThinking,
// ServerToolUse, and WebSearchToolResult do not implement it.
type Cacheable interface {
	GetCacheControl() *CacheControl
	SetCacheControl(*CacheControl)
}

// Citation is an opaque citation payload attached to TextBlock by a
// citations-delta. The core does not interpret citation contents (exhaustive
// citation-location modeling is out of scope per spec.md §1) — the
// accumulator collects each citations_delta payload into TextBlock.Citations
// as-is. MarshalContentBlock does not write citations, and
// UnmarshalContentBlock does not keep a citation's payload in Raw.
type Citation struct {
	Raw json.RawMessage
}

// TextBlock is plain assistant/user text.
type TextBlock struct {
	Text         string
	Citations    []Citation
	CacheControl *CacheControl
}

func (b *TextBlock) Type() BlockType                    { return BlockText }
func (b *TextBlock) GetCacheControl() *CacheControl     { return b.CacheControl }
func (b *TextBlock) SetCacheControl(c *CacheControl)    { b.CacheControl = c }

// ImageSource is either base64-inline or a remote URL, matching the wire
// union original_source models as Base64ImageSource / URL image sources.
type ImageSource struct {
	Type      string // "base64" | "url"
	MediaType string // e.g. "image/png", only set for base64
	Data      string // base64 payload or URL
}

type ImageBlock struct {
	Source       ImageSource
	CacheControl *CacheControl
}

func (b *ImageBlock) Type() BlockType                 { return BlockImage }
func (b *ImageBlock) GetCacheControl() *CacheControl  { return b.CacheControl }
func (b *ImageBlock) SetCacheControl(c *CacheControl) { b.CacheControl = c }

type DocumentSource struct {
	Type      string // "base64" | "text" | "url"
	MediaType string
	Data      string
}

type DocumentBlock struct {
	Source       DocumentSource
	Title        string
	CacheControl *CacheControl
}

func (b *DocumentBlock) Type() BlockType                 { return BlockDocument }
func (b *DocumentBlock) GetCacheControl() *CacheControl  { return b.CacheControl }
func (b *DocumentBlock) SetCacheControl(c *CacheControl) { b.CacheControl = c }

// ToolUseBlock is a model-issued tool call. Input is built by the
// accumulator (§4.2): concatenated partial_json, parsed at block-stop, JSON
// null on parse failure — never a stream error.
type ToolUseBlock struct {
	ID           string
	Name         string
	Input        json.RawMessage
	CacheControl *CacheControl
}

func (b *ToolUseBlock) Type() BlockType                 { return BlockToolUse }
func (b *ToolUseBlock) GetCacheControl() *CacheControl  { return b.CacheControl }
func (b *ToolUseBlock) SetCacheControl(c *CacheControl) { b.CacheControl = c }

// ServerToolUseBlock is a server-executed tool invocation (e.g. web search);
// its input arrives whole in content_block_start, never streamed as deltas.
type ServerToolUseBlock struct {
	ID           string
	Name         string
	Input        json.RawMessage
	CacheControl *CacheControl
}

func (b *ServerToolUseBlock) Type() BlockType { return BlockServerToolUse }

// ToolResultBlock is the client's reply to a ToolUseBlock, placed in a user
// MessageParam by the agent runtime (§4.3).
type ToolResultBlock struct {
	ToolUseID    string
	Content      string
	IsError      bool
	CacheControl *CacheControl
}

func (b *ToolResultBlock) Type() BlockType                 { return BlockToolResult }
func (b *ToolResultBlock) GetCacheControl() *CacheControl  { return b.CacheControl }
func (b *ToolResultBlock) SetCacheControl(c *CacheControl) { b.CacheControl = c }

// WebSearchToolResultBlock carries a server tool's result payload verbatim;
// the core does not interpret individual search results.
type WebSearchToolResultBlock struct {
	ToolUseID    string
	Content      json.RawMessage
	CacheControl *CacheControl
}

func (b *WebSearchToolResultBlock) Type() BlockType { return BlockWebSearchToolResult }

// ThinkingBlock and RedactedThinkingBlock never carry cache_control (§3).
type ThinkingBlock struct {
	Thinking  string
	Signature string
}

func (b *ThinkingBlock) Type() BlockType { return BlockThinking }

type RedactedThinkingBlock struct {
	Data string
}

func (b *RedactedThinkingBlock) Type() BlockType { return BlockRedactedThinking }

// RawBlock is forward-compatible passthrough for any block type the core
// doesn't model explicitly, grounded on the teacher's default case in the
// content_block_start type switch (pkg/providers/anthropic/language_model.go)
// which already treats unrecognized content as opaque passthrough data.
type RawBlock struct {
	RawType string
	Raw     json.RawMessage
}

func (b *RawBlock) Type() BlockType { return BlockType(b.RawType) }

// GetCacheControl/SetCacheControl make RawBlock participate in the
// cache-control planner (§4.4) despite carrying no typed fields: since its
// payload is opaque json.RawMessage, a struct-field mutation isn't
// available, so these poke the "cache_control" key directly with
// tidwall/gjson + tidwall/sjson rather than round-tripping through
// map[string]interface{} — the one place in the module that edits wire JSON
// without a typed model to decode into, which is exactly the case those two
// libraries are for.
func (b *RawBlock) GetCacheControl() *CacheControl {
	result := gjson.GetBytes(b.Raw, "cache_control")
	if !result.Exists() {
		return nil
	}
	var cc CacheControl
	if json.Unmarshal([]byte(result.Raw), &cc) != nil {
		return nil
	}
	return &cc
}

func (b *RawBlock) SetCacheControl(c *CacheControl) {
	if c == nil {
		raw, err := sjson.DeleteBytes(b.Raw, "cache_control")
		if err == nil {
			b.Raw = raw
		}
		return
	}
	raw, err := sjson.SetBytes(b.Raw, "cache_control", c)
	if err == nil {
		b.Raw = raw
	}
}

// MarshalContentBlock renders a ContentBlock to its wire JSON form.
func MarshalContentBlock(b ContentBlock) ([]byte, error) {
	switch v := b.(type) {
	case *TextBlock:
		m := map[string]interface{}{"type": "text", "text": v.Text}
		if v.CacheControl != nil {
			m["cache_control"] = v.CacheControl
		}
		return json.Marshal(m)
	case *ImageBlock:
		m := map[string]interface{}{"type": "image", "source": v.Source}
		if v.CacheControl != nil {
			m["cache_control"] = v.CacheControl
		}
		return json.Marshal(m)
	case *DocumentBlock:
		m := map[string]interface{}{"type": "document", "source": v.Source}
		if v.Title != "" {
			m["title"] = v.Title
		}
		if v.CacheControl != nil {
			m["cache_control"] = v.CacheControl
		}
		return json.Marshal(m)
	case *ToolUseBlock:
		input := v.Input
		if input == nil {
			input = json.RawMessage("null")
		}
		m := map[string]interface{}{"type": "tool_use", "id": v.ID, "name": v.Name, "input": input}
		if v.CacheControl != nil {
			m["cache_control"] = v.CacheControl
		}
		return json.Marshal(m)
	case *ServerToolUseBlock:
		input := v.Input
		if input == nil {
			input = json.RawMessage("null")
		}
		return json.Marshal(map[string]interface{}{"type": "server_tool_use", "id": v.ID, "name": v.Name, "input": input})
	case *ToolResultBlock:
		m := map[string]interface{}{"type": "tool_result", "tool_use_id": v.ToolUseID, "content": v.Content}
		if v.IsError {
			m["is_error"] = true
		}
		if v.CacheControl != nil {
			m["cache_control"] = v.CacheControl
		}
		return json.Marshal(m)
	case *WebSearchToolResultBlock:
		return json.Marshal(map[string]interface{}{"type": "web_search_tool_result", "tool_use_id": v.ToolUseID, "content": v.Content})
	case *ThinkingBlock:
		return json.Marshal(map[string]interface{}{"type": "thinking", "thinking": v.Thinking, "signature": v.Signature})
	case *RedactedThinkingBlock:
		return json.Marshal(map[string]interface{}{"type": "redacted_thinking", "data": v.Data})
	case *RawBlock:
		return v.Raw, nil
	default:
		return nil, fmt.Errorf("message: unknown content block type %T", b)
	}
}

// UnmarshalContentBlock parses a single wire content block, dispatching on
// its "type" discriminator. Unknown types become RawBlock passthrough.
func UnmarshalContentBlock(raw json.RawMessage) (ContentBlock, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case "text":
		var v struct {
			Text         string          `json:"text"`
			Citations    []Citation      `json:"citations"`
			CacheControl *CacheControl   `json:"cache_control"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &TextBlock{Text: v.Text, Citations: v.Citations, CacheControl: v.CacheControl}, nil
	case "image":
		var v struct {
			Source       ImageSource   `json:"source"`
			CacheControl *CacheControl `json:"cache_control"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &ImageBlock{Source: v.Source, CacheControl: v.CacheControl}, nil
	case "document":
		var v struct {
			Source       DocumentSource `json:"source"`
			Title        string         `json:"title"`
			CacheControl *CacheControl  `json:"cache_control"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &DocumentBlock{Source: v.Source, Title: v.Title, CacheControl: v.CacheControl}, nil
	case "tool_use":
		var v struct {
			ID           string          `json:"id"`
			Name         string          `json:"name"`
			Input        json.RawMessage `json:"input"`
			CacheControl *CacheControl   `json:"cache_control"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &ToolUseBlock{ID: v.ID, Name: v.Name, Input: v.Input, CacheControl: v.CacheControl}, nil
	case "server_tool_use":
		var v struct {
			ID    string          `json:"id"`
			Name  string          `json:"name"`
			Input json.RawMessage `json:"input"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &ServerToolUseBlock{ID: v.ID, Name: v.Name, Input: v.Input}, nil
	case "tool_result":
		var v struct {
			ToolUseID    string        `json:"tool_use_id"`
			Content      string        `json:"content"`
			IsError      bool          `json:"is_error"`
			CacheControl *CacheControl `json:"cache_control"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &ToolResultBlock{ToolUseID: v.ToolUseID, Content: v.Content, IsError: v.IsError, CacheControl: v.CacheControl}, nil
	case "web_search_tool_result":
		var v struct {
			ToolUseID string          `json:"tool_use_id"`
			Content   json.RawMessage `json:"content"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &WebSearchToolResultBlock{ToolUseID: v.ToolUseID, Content: v.Content}, nil
	case "thinking":
		var v struct {
			Thinking  string `json:"thinking"`
			Signature string `json:"signature"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &ThinkingBlock{Thinking: v.Thinking, Signature: v.Signature}, nil
	case "redacted_thinking":
		var v struct {
			Data string `json:"data"`
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &RedactedThinkingBlock{Data: v.Data}, nil
	default:
		return &RawBlock{RawType: head.Type, Raw: raw}, nil
	}
}
