// Package llms provides chat-completion providers behind a common
// interface: OpenAI-compatible APIs (OpenAI, Groq, OpenRouter), Gemini,
// and Ollama.
package llms

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one turn of a conversation.
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall

	// Set on RoleTool messages carrying a tool result.
	ToolCallID string
	ToolName   string
}

// ToolCall is a function invocation requested by the model. Arguments is
// the raw JSON object string as the provider returned it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolDefinition advertises a callable tool to the model. Parameters is a
// JSON-schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// GenerateOptions tunes a single generation. A nil options value means
// plain text completion with provider defaults.
type GenerateOptions struct {
	Tools    []ToolDefinition
	JSONMode bool
}

// Response is a completed (non-streaming) generation.
type Response struct {
	Text       string
	ToolCalls  []ToolCall
	TokensUsed int
}

// Stream chunk types.
const (
	ChunkText     = "text"
	ChunkToolCall = "tool_call"
	ChunkDone     = "done"
	ChunkError    = "error"
)

// StreamChunk is one unit of streamed output. Tool calls are accumulated
// by the provider and emitted whole once complete. A ChunkError carries
// the read failure that ended the stream and is always the last chunk.
type StreamChunk struct {
	Type       string
	Text       string
	ToolCall   *ToolCall
	TokensUsed int
	Err        error
}
