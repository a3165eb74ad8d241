// Package agent runs configured agents: an LLM, an instruction, and a
// set of tools in a call-execute-feed-back loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/tools"
	"github.com/atelier-ai/atelier/pkg/utils"
)

// RunResult is the outcome of one agent run.
type RunResult struct {
	Text       string
	Messages   []llms.Message
	ToolCalls  int
	TokensUsed int
	Duration   time.Duration
}

// TextSink receives streamed text as it is generated. Nil means no
// streaming; the full text arrives in the RunResult either way.
type TextSink func(text string)

// Agent wraps an LLM with an instruction and tools.
type Agent struct {
	name    string
	cfg     config.AgentConfig
	llm     llms.Provider
	tools   *tools.Registry
	counter *utils.TokenCounter
}

func New(name string, cfg config.AgentConfig, llm llms.Provider, toolRegistry *tools.Registry) *Agent {
	return &Agent{
		name:    name,
		cfg:     cfg,
		llm:     llm,
		tools:   toolRegistry,
		counter: utils.NewTokenCounter(),
	}
}

func (a *Agent) Name() string        { return a.name }
func (a *Agent) Instruction() string { return a.cfg.Instruction }

// Run executes one turn: the model generates, requested tools run, and
// their results feed back until the model answers with text only or the
// iteration cap is reached. history carries prior turns (no system
// message; the instruction is added here).
func (a *Agent) Run(ctx context.Context, history []llms.Message, input string, sink TextSink) (*RunResult, error) {
	start := time.Now()

	defs, err := a.tools.Definitions(a.cfg.Tools)
	if err != nil {
		return nil, err
	}

	messages := make([]llms.Message, 0, len(history)+2)
	messages = append(messages, llms.Message{Role: llms.RoleSystem, Content: a.cfg.Instruction})
	messages = append(messages, history...)
	messages = append(messages, llms.Message{Role: llms.RoleUser, Content: input})
	messages = trimHistory(messages, a.counter, a.llm.Model(), a.cfg.History.MaxTokens)

	result := &RunResult{}
	opts := &llms.GenerateOptions{Tools: defs}

	for iteration := 0; iteration < a.cfg.MaxIterations; iteration++ {
		text, calls, tokens, err := a.generate(ctx, messages, opts, sink)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.name, err)
		}
		result.TokensUsed += tokens

		if len(calls) == 0 {
			result.Text = text
			messages = append(messages, llms.Message{Role: llms.RoleAssistant, Content: text})
			result.Messages = messages
			result.Duration = time.Since(start)
			return result, nil
		}

		messages = append(messages, llms.Message{
			Role:      llms.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})
		for _, call := range calls {
			result.ToolCalls++
			messages = append(messages, a.executeTool(ctx, call))
		}
	}

	// Cap reached: force a final text answer with tools withheld.
	slog.Warn("Agent hit iteration cap, forcing final answer",
		"agent", a.name, "max_iterations", a.cfg.MaxIterations)
	text, _, tokens, err := a.generate(ctx, messages, nil, sink)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.name, err)
	}
	result.TokensUsed += tokens
	result.Text = text
	result.Messages = append(messages, llms.Message{Role: llms.RoleAssistant, Content: text})
	result.Duration = time.Since(start)
	return result, nil
}

func (a *Agent) generate(ctx context.Context, messages []llms.Message, opts *llms.GenerateOptions, sink TextSink) (string, []llms.ToolCall, int, error) {
	if sink == nil {
		resp, err := a.llm.Generate(ctx, messages, opts)
		if err != nil {
			return "", nil, 0, err
		}
		return resp.Text, resp.ToolCalls, resp.TokensUsed, nil
	}

	chunks, err := a.llm.GenerateStreaming(ctx, messages, opts)
	if err != nil {
		return "", nil, 0, err
	}

	var text string
	var calls []llms.ToolCall
	tokens := 0
	for chunk := range chunks {
		switch chunk.Type {
		case llms.ChunkText:
			text += chunk.Text
			sink(chunk.Text)
		case llms.ChunkToolCall:
			calls = append(calls, *chunk.ToolCall)
		case llms.ChunkDone:
			tokens = chunk.TokensUsed
		case llms.ChunkError:
			return "", nil, 0, fmt.Errorf("stream interrupted: %w", chunk.Err)
		}
	}
	return text, calls, tokens, nil
}

// executeTool runs one requested tool call. Failures become tool messages
// the model can read and recover from; they never abort the run.
func (a *Agent) executeTool(ctx context.Context, call llms.ToolCall) llms.Message {
	msg := llms.Message{
		Role:       llms.RoleTool,
		ToolCallID: call.ID,
		ToolName:   call.Name,
	}

	tool, ok := a.tools.Get(call.Name)
	if !ok {
		msg.Content = fmt.Sprintf("Error: unknown tool %q", call.Name)
		return msg
	}

	args := make(map[string]any)
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			msg.Content = fmt.Sprintf("Error: invalid tool arguments: %v", err)
			return msg
		}
	}

	result := tool.Execute(ctx, args)
	slog.Debug("Tool executed",
		"agent", a.name,
		"tool", call.Name,
		"success", result.Success,
		"duration", result.ExecutionTime)

	if !result.Success {
		msg.Content = "Error: " + result.Error
		return msg
	}
	msg.Content = result.Content
	return msg
}
