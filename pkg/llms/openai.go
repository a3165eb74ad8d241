package llms

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
)

// OpenAI speaks the OpenAI chat-completions API. Groq and OpenRouter are
// wire compatible and differ only in base URL and key.
type OpenAI struct {
	cfg    config.LLMConfig
	client *httpclient.Client
}

func NewOpenAI(cfg config.LLMConfig) *OpenAI {
	return &OpenAI{
		cfg: cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithHeaderParser(httpclient.ParseOpenAIHeaders),
		),
	}
}

func (p *OpenAI) Model() string { return p.cfg.Model }

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type openAIRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Tools          []openAITool    `json:"tools,omitempty"`
	Stream         bool            `json:"stream,omitempty"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *OpenAI) buildRequest(messages []Message, opts *GenerateOptions, stream bool) openAIRequest {
	req := openAIRequest{
		Model:       p.cfg.Model,
		Messages:    make([]openAIMessage, 0, len(messages)),
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Stream:      stream,
	}

	for _, m := range messages {
		msg := openAIMessage{Role: m.Role, Content: m.Content}
		if m.Role == RoleTool {
			msg.ToolCallID = m.ToolCallID
			msg.Name = m.ToolName
		}
		for _, tc := range m.ToolCalls {
			call := openAIToolCall{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
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
			req.ResponseFormat = &struct {
				Type string `json:"type"`
			}{Type: "json_object"}
		}
	}

	return req
}

func (p *OpenAI) post(ctx context.Context, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(p.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	// Do returns both the response and an error for non-2xx statuses;
	// the error body is still ours to parse.
	resp, err := p.client.Do(req)
	if resp == nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseOpenAIError(resp)
	}
	return resp, nil
}

func parseOpenAIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr openAIResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, apiErr.Error.Message)
	}
	return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func (p *OpenAI) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (*Response, error) {
	resp, err := p.post(ctx, p.buildRequest(messages, opts, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("response contained no choices")
	}

	choice := parsed.Choices[0].Message
	out := &Response{Text: choice.Content, TokensUsed: parsed.Usage.TotalTokens}
	for _, tc := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out, nil
}

type openAIStreamDelta struct {
	Choices []struct {
		Delta struct {
			Content   string `json:"content"`
			ToolCalls []struct {
				Index    int    `json:"index"`
				ID       string `json:"id"`
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (p *OpenAI) GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error) {
	resp, err := p.post(ctx, p.buildRequest(messages, opts, true))
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		// Tool call fragments arrive interleaved by index; accumulate and
		// emit whole calls at the end of the stream.
		calls := make(map[int]*ToolCall)
		tokens := 0

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				break
			}

			var delta openAIStreamDelta
			if err := json.Unmarshal([]byte(payload), &delta); err != nil {
				continue
			}
			if delta.Usage != nil {
				tokens = delta.Usage.TotalTokens
			}
			if len(delta.Choices) == 0 {
				continue
			}

			d := delta.Choices[0].Delta
			if d.Content != "" {
				select {
				case out <- StreamChunk{Type: ChunkText, Text: d.Content}:
				case <-ctx.Done():
					return
				}
			}
			for _, tc := range d.ToolCalls {
				call, ok := calls[tc.Index]
				if !ok {
					call = &ToolCall{}
					calls[tc.Index] = call
				}
				if tc.ID != "" {
					call.ID = tc.ID
				}
				if tc.Function.Name != "" {
					call.Name = tc.Function.Name
				}
				call.Arguments += tc.Function.Arguments
			}
		}

		if err := scanner.Err(); err != nil {
			select {
			case out <- StreamChunk{Type: ChunkError, Err: err}:
			case <-ctx.Done():
			}
			return
		}

		indexes := make([]int, 0, len(calls))
		for i := range calls {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)
		for _, i := range indexes {
			select {
			case out <- StreamChunk{Type: ChunkToolCall, ToolCall: calls[i]}:
			case <-ctx.Done():
				return
			}
		}

		select {
		case out <- StreamChunk{Type: ChunkDone, TokensUsed: tokens}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}
