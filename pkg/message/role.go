package message

// Role is the sender of a Message or MessageParam. Only user and assistant
// appear on the wire; tool results travel inside user messages as
// ToolResultBlock content (unlike the teacher's four-role MessageRole, which
// also models "system" and "tool" as standalone roles for its
// multi-provider abstraction).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// StopReason is why the model stopped generating. A defined type rather than
// a bare string, matching the teacher's preference for typed wire enums
// (types.MessageRole, types.FinishReason in pkg/provider/types).
type StopReason string

const (
	StopEndTurn                    StopReason = "end_turn"
	StopMaxTokens                  StopReason = "max_tokens"
	StopStopSequence               StopReason = "stop_sequence"
	StopToolUse                    StopReason = "tool_use"
	StopPauseTurn                  StopReason = "pause_turn"
	StopRefusal                    StopReason = "refusal"
	StopModelContextWindowExceeded StopReason = "model_context_window_exceeded"
)
