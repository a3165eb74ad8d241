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

// Gemini speaks the generativelanguage REST API directly.
type Gemini struct {
	cfg    config.LLMConfig
	client *httpclient.Client
}

func NewGemini(cfg config.LLMConfig) *Gemini {
	return &Gemini{
		cfg: cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithHeaderParser(httpclient.ParseGeminiHeaders),
		),
	}
}

func (p *Gemini) Model() string { return p.cfg.Model }

type geminiPart struct {
	Text         string `json:"text,omitempty"`
	FunctionCall *struct {
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCall,omitempty"`
	FunctionResponse *struct {
		Name     string         `json:"name"`
		Response map[string]any `json:"response"`
	} `json:"functionResponse,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Tools             []struct {
		FunctionDeclarations []geminiFunction `json:"functionDeclarations"`
	} `json:"tools,omitempty"`
	GenerationConfig struct {
		Temperature      float64 `json:"temperature,omitempty"`
		MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
		ResponseMimeType string  `json:"responseMimeType,omitempty"`
	} `json:"generationConfig"`
}

type geminiFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Gemini) buildRequest(messages []Message, opts *GenerateOptions) geminiRequest {
	req := geminiRequest{}
	req.GenerationConfig.Temperature = p.cfg.Temperature
	req.GenerationConfig.MaxOutputTokens = p.cfg.MaxTokens

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case RoleAssistant:
			content := geminiContent{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, geminiPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				part := geminiPart{FunctionCall: &struct {
					Name string         `json:"name"`
					Args map[string]any `json:"args"`
				}{Name: tc.Name, Args: args}}
				content.Parts = append(content.Parts, part)
			}
			req.Contents = append(req.Contents, content)
		case RoleTool:
			part := geminiPart{FunctionResponse: &struct {
				Name     string         `json:"name"`
				Response map[string]any `json:"response"`
			}{Name: m.ToolName, Response: map[string]any{"result": m.Content}}}
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{part}})
		default:
			req.Contents = append(req.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}

	if opts != nil {
		if len(opts.Tools) > 0 {
			declarations := make([]geminiFunction, 0, len(opts.Tools))
			for _, t := range opts.Tools {
				declarations = append(declarations, geminiFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				})
			}
			req.Tools = []struct {
				FunctionDeclarations []geminiFunction `json:"functionDeclarations"`
			}{{FunctionDeclarations: declarations}}
		}
		if opts.JSONMode {
			req.GenerationConfig.ResponseMimeType = "application/json"
		}
	}

	return req
}

func (p *Gemini) post(ctx context.Context, endpoint string, body geminiRequest) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:%s",
		strings.TrimSuffix(p.cfg.BaseURL, "/"), p.cfg.Model, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if resp == nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var parsed geminiResponse
		if json.Unmarshal(raw, &parsed) == nil && parsed.Error != nil {
			return nil, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, parsed.Error.Message)
		}
		return nil, fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return resp, nil
}

func (p *Gemini) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (*Response, error) {
	resp, err := p.post(ctx, "generateContent", p.buildRequest(messages, opts))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("response contained no candidates")
	}

	out := &Response{TokensUsed: parsed.UsageMetadata.TotalTokenCount}
	var text strings.Builder
	for i, part := range parsed.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call-%d", i),
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}
	out.Text = text.String()
	return out, nil
}

func (p *Gemini) GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error) {
	resp, err := p.post(ctx, "streamGenerateContent?alt=sse", p.buildRequest(messages, opts))
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		tokens := 0
		callIndex := 0

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}

			var parsed geminiResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &parsed); err != nil {
				continue
			}
			if parsed.UsageMetadata.TotalTokenCount > 0 {
				tokens = parsed.UsageMetadata.TotalTokenCount
			}
			if len(parsed.Candidates) == 0 {
				continue
			}

			for _, part := range parsed.Candidates[0].Content.Parts {
				if part.Text != "" {
					select {
					case out <- StreamChunk{Type: ChunkText, Text: part.Text}:
					case <-ctx.Done():
						return
					}
				}
				if part.FunctionCall != nil {
					args, _ := json.Marshal(part.FunctionCall.Args)
					call := &ToolCall{
						ID:        fmt.Sprintf("call-%d", callIndex),
						Name:      part.FunctionCall.Name,
						Arguments: string(args),
					}
					callIndex++
					select {
					case out <- StreamChunk{Type: ChunkToolCall, ToolCall: call}:
					case <-ctx.Done():
						return
					}
				}
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
