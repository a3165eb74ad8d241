package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
)

// Ollama speaks the local Ollama /api/chat endpoint.
type Ollama struct {
	cfg    config.LLMConfig
	client *httpclient.Client
}

func NewOllama(cfg config.LLMConfig) *Ollama {
	return &Ollama{
		cfg: cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
		),
	}
}

func (p *Ollama) Model() string { return p.cfg.Model }

type ollamaMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	ToolCalls []struct {
		Function struct {
			Name      string         `json:"name"`
			Arguments map[string]any `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
	Tools    []openAITool    `json:"tools,omitempty"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaResponse struct {
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count"`
	EvalCount       int           `json:"eval_count"`
	Error           string        `json:"error"`
}

func (p *Ollama) buildRequest(messages []Message, opts *GenerateOptions, stream bool) ollamaRequest {
	req := ollamaRequest{
		Model:    p.cfg.Model,
		Messages: make([]ollamaMessage, 0, len(messages)),
		Stream:   stream,
	}
	req.Options.Temperature = p.cfg.Temperature
	req.Options.NumPredict = p.cfg.MaxTokens

	for _, m := range messages {
		msg := ollamaMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			var args map[string]any
			_ = json.Unmarshal([]byte(tc.Arguments), &args)
			call := struct {
				Function struct {
					Name      string         `json:"name"`
					Arguments map[string]any `json:"arguments"`
				} `json:"function"`
			}{}
			call.Function.Name = tc.Name
			call.Function.Arguments = args
			msg.ToolCalls = append(msg.ToolCalls, call)
		}
		req.Messages = append(req.Messages, msg)
	}

	if opts != nil {
		for _, t := range opts.Tools {
			tool := openAITool{Type: "function"}
			tool.Function.Name = t.Name
			tool.Function.Description = t.Description
			tool.Function.Parameters = t.Parameters
			req.Tools = append(req.Tools, tool)
		}
		if opts.JSONMode {
			req.Format = "json"
		}
	}

	return req
}

func (p *Ollama) post(ctx context.Context, body ollamaRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(p.cfg.BaseURL, "/")+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if resp == nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ollama error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

func toolCallsFromOllama(msg ollamaMessage) []ToolCall {
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for i, tc := range msg.ToolCalls {
		args, _ := json.Marshal(tc.Function.Arguments)
		calls = append(calls, ToolCall{
			ID:        fmt.Sprintf("call-%d", i),
			Name:      tc.Function.Name,
			Arguments: string(args),
		})
	}
	return calls
}

func (p *Ollama) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (*Response, error) {
	resp, err := p.post(ctx, p.buildRequest(messages, opts, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", parsed.Error)
	}

	return &Response{
		Text:       parsed.Message.Content,
		ToolCalls:  toolCallsFromOllama(parsed.Message),
		TokensUsed: parsed.PromptEvalCount + parsed.EvalCount,
	}, nil
}

func (p *Ollama) GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error) {
	resp, err := p.post(ctx, p.buildRequest(messages, opts, true))
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		tokens := 0

		// Ollama streams newline-delimited JSON objects, not SSE.
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var parsed ollamaResponse
			if err := json.Unmarshal(scanner.Bytes(), &parsed); err != nil {
				continue
			}

			if parsed.Message.Content != "" {
				select {
				case out <- StreamChunk{Type: ChunkText, Text: parsed.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			for _, call := range toolCallsFromOllama(parsed.Message) {
				call := call
				select {
				case out <- StreamChunk{Type: ChunkToolCall, ToolCall: &call}:
				case <-ctx.Done():
					return
				}
			}
			if parsed.Done {
				tokens = parsed.PromptEvalCount + parsed.EvalCount
				break
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamChunk{Type: ChunkError, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		select {
		case out <- StreamChunk{Type: ChunkDone, TokensUsed: tokens}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}
