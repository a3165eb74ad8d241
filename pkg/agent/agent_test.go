package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/tools"
	"github.com/atelier-ai/atelier/pkg/utils"
)

// turnLLM replays a scripted sequence of responses.
type turnLLM struct {
	turns []llms.Response
	seen  [][]llms.Message
}

func (f *turnLLM) Generate(_ context.Context, messages []llms.Message, _ *llms.GenerateOptions) (*llms.Response, error) {
	f.seen = append(f.seen, messages)
	if len(f.turns) == 0 {
		return &llms.Response{Text: "out of script"}, nil
	}
	next := f.turns[0]
	f.turns = f.turns[1:]
	return &next, nil
}

func (f *turnLLM) GenerateStreaming(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions) (<-chan llms.StreamChunk, error) {
	resp, err := f.Generate(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	ch := make(chan llms.StreamChunk, len(resp.ToolCalls)+2)
	if resp.Text != "" {
		ch <- llms.StreamChunk{Type: llms.ChunkText, Text: resp.Text}
	}
	for i := range resp.ToolCalls {
		ch <- llms.StreamChunk{Type: llms.ChunkToolCall, ToolCall: &resp.ToolCalls[i]}
	}
	ch <- llms.StreamChunk{Type: llms.ChunkDone, TokensUsed: resp.TokensUsed}
	close(ch)
	return ch, nil
}

func (f *turnLLM) Model() string { return "gpt-4o-mini" }

// echoTool records its arguments and returns a canned result.
type echoTool struct {
	name   string
	result tools.ToolResult
	calls  []map[string]any
}

func (e *echoTool) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{Name: e.name, Description: "test tool", Parameters: map[string]any{"type": "object"}}
}

func (e *echoTool) Execute(_ context.Context, args map[string]any) tools.ToolResult {
	e.calls = append(e.calls, args)
	return e.result
}

func testAgentConfig(toolNames ...string) config.AgentConfig {
	cfg := config.AgentConfig{Instruction: "Be helpful.", Tools: toolNames, MaxIterations: 3}
	cfg.History.SetDefaults()
	return cfg
}

func TestRunTextOnly(t *testing.T) {
	llm := &turnLLM{turns: []llms.Response{{Text: "Hi there.", TokensUsed: 7}}}
	a := New("helper", testAgentConfig(), llm, tools.NewRegistry())

	result, err := a.Run(context.Background(), nil, "Hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "Hi there.", result.Text)
	assert.Equal(t, 0, result.ToolCalls)
	assert.Equal(t, 7, result.TokensUsed)

	// system + user + assistant
	require.Len(t, result.Messages, 3)
	assert.Equal(t, llms.RoleSystem, result.Messages[0].Role)
	assert.Equal(t, "Be helpful.", result.Messages[0].Content)
}

func TestRunExecutesToolAndFeedsResultBack(t *testing.T) {
	weather := &echoTool{
		name:   "weather",
		result: tools.ToolResult{Success: true, Content: "Sunny, 25C"},
	}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register("weather", weather))

	llm := &turnLLM{turns: []llms.Response{
		{ToolCalls: []llms.ToolCall{{ID: "c1", Name: "weather", Arguments: `{"city":"Madrid"}`}}},
		{Text: "It is sunny in Madrid."},
	}}
	a := New("helper", testAgentConfig("weather"), llm, reg)

	result, err := a.Run(context.Background(), nil, "Weather in Madrid?", nil)
	require.NoError(t, err)

	assert.Equal(t, "It is sunny in Madrid.", result.Text)
	assert.Equal(t, 1, result.ToolCalls)
	require.Len(t, weather.calls, 1)
	assert.Equal(t, "Madrid", weather.calls[0]["city"])

	// The second generation must have seen the tool result.
	second := llm.seen[1]
	last := second[len(second)-1]
	assert.Equal(t, llms.RoleTool, last.Role)
	assert.Equal(t, "Sunny, 25C", last.Content)
	assert.Equal(t, "c1", last.ToolCallID)
}

func TestRunToolFailureBecomesMessage(t *testing.T) {
	broken := &echoTool{
		name:   "search",
		result: tools.ToolResult{Success: false, Error: "backend unreachable"},
	}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register("search", broken))

	llm := &turnLLM{turns: []llms.Response{
		{ToolCalls: []llms.ToolCall{{ID: "c1", Name: "search", Arguments: `{}`}}},
		{Text: "I could not search, sorry."},
	}}
	a := New("helper", testAgentConfig("search"), llm, reg)

	result, err := a.Run(context.Background(), nil, "find something", nil)
	require.NoError(t, err)
	assert.Equal(t, "I could not search, sorry.", result.Text)

	second := llm.seen[1]
	last := second[len(second)-1]
	assert.Contains(t, last.Content, "Error: backend unreachable")
}

func TestRunIterationCapForcesAnswer(t *testing.T) {
	loop := &echoTool{name: "loop", result: tools.ToolResult{Success: true, Content: "again"}}
	reg := tools.NewRegistry()
	require.NoError(t, reg.Register("loop", loop))

	// Always asks for another tool call; the cap must cut it off.
	llm := &turnLLM{turns: []llms.Response{
		{ToolCalls: []llms.ToolCall{{ID: "1", Name: "loop", Arguments: `{}`}}},
		{ToolCalls: []llms.ToolCall{{ID: "2", Name: "loop", Arguments: `{}`}}},
		{ToolCalls: []llms.ToolCall{{ID: "3", Name: "loop", Arguments: `{}`}}},
		{Text: "Final forced answer."},
	}}
	a := New("looper", testAgentConfig("loop"), llm, reg)

	result, err := a.Run(context.Background(), nil, "go", nil)
	require.NoError(t, err)
	assert.Equal(t, "Final forced answer.", result.Text)
	assert.Equal(t, 3, result.ToolCalls)
	assert.Len(t, llm.seen, 4)
}

func TestRunStreamsText(t *testing.T) {
	llm := &turnLLM{turns: []llms.Response{{Text: "streamed reply"}}}
	a := New("helper", testAgentConfig(), llm, tools.NewRegistry())

	var streamed string
	result, err := a.Run(context.Background(), nil, "Hello", func(text string) {
		streamed += text
	})
	require.NoError(t, err)
	assert.Equal(t, "streamed reply", result.Text)
	assert.Equal(t, "streamed reply", streamed)
}

func TestTrimHistoryKeepsSystemAndRecent(t *testing.T) {
	counter := utils.NewTokenCounter()

	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: "instruction"},
		{Role: llms.RoleUser, Content: "very old question about many topics and more"},
		{Role: llms.RoleAssistant, Content: "very old answer covering many topics at length"},
		{Role: llms.RoleUser, Content: "recent question"},
	}

	trimmed := trimHistory(messages, counter, "gpt-4o", 10)
	require.NotEmpty(t, trimmed)
	assert.Equal(t, llms.RoleSystem, trimmed[0].Role)
	assert.Equal(t, "recent question", trimmed[len(trimmed)-1].Content)
	assert.Less(t, len(trimmed), len(messages))

	// Generous budget keeps everything.
	full := trimHistory(messages, counter, "gpt-4o", 100000)
	assert.Len(t, full, len(messages))
}

func TestTrimHistoryTinyBudgetKeepsNewestMessage(t *testing.T) {
	counter := utils.NewTokenCounter()

	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: "instruction"},
		{Role: llms.RoleUser, Content: "old question"},
		{Role: llms.RoleAssistant, Content: "old answer"},
		{Role: llms.RoleUser, Content: "a fresh question that is far larger than the whole budget allows"},
	}

	// Budget too small for even the newest message.
	trimmed := trimHistory(messages, counter, "gpt-4o", 1)
	require.Len(t, trimmed, 2)
	assert.Equal(t, llms.RoleSystem, trimmed[0].Role)
	assert.Equal(t, llms.RoleUser, trimmed[1].Role)
	assert.Equal(t, messages[3].Content, trimmed[1].Content)
}
