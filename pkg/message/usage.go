package message

// Usage is token accounting for one Message. Grounded on
// convertAnthropicUsage (pkg/providers/anthropic/language_model.go), which
// already carries cache_creation_input_tokens / cache_read_input_tokens
// through from the wire.
type Usage struct {
	InputTokens              int  `json:"input_tokens"`
	OutputTokens             int  `json:"output_tokens"`
	CacheCreationInputTokens *int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     *int `json:"cache_read_input_tokens,omitempty"`
	ServerToolUse            *ServerToolUsage `json:"server_tool_use,omitempty"`
}

// ServerToolUsage counts server-executed tool invocations (e.g. web search)
// billed against the request.
type ServerToolUsage struct {
	WebSearchRequests int `json:"web_search_requests"`
}
