package domain

// Chat message roles as used on the wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is the provider-agnostic chat message shape used by the
// usecase and LLM integrations. ToolCalls is set on assistant messages
// that request tool invocations; ToolCallID links a tool-role result
// back to the call it answers.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a single function invocation requested by the model.
// Arguments is the raw JSON argument object as produced by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec describes a tool offered to the model. Parameters holds the
// JSON schema of the tool's argument object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  []byte
}

// Completion is the outcome of one chat completion round.
type Completion struct {
	Message      ChatMessage
	FinishReason string
}

// FinishReasonToolCalls signals that the model wants tool results
// before producing its final answer.
const FinishReasonToolCalls = "tool_calls"
