package llms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req ollamaRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "llama3.2", req.Model)

		fmt.Fprint(w, `{
			"message": {"role": "assistant", "content": "Bonjour."},
			"done": true,
			"prompt_eval_count": 10,
			"eval_count": 5
		}`)
	}))
	defer server.Close()

	cfg := config.LLMConfig{Type: config.LLMTypeOllama, Model: "llama3.2", BaseURL: server.URL}
	cfg.SetDefaults()
	cfg.BaseURL = server.URL

	resp, err := NewOllama(cfg).Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "Say hello in French"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Bonjour.", resp.Text)
	assert.Equal(t, 15, resp.TokensUsed)
}

func TestOllamaGenerateToolCall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"message": {
				"role": "assistant",
				"content": "",
				"tool_calls": [{"function": {"name": "currency_convert", "arguments": {"amount": 100, "from": "USD", "to": "EUR"}}}]
			},
			"done": true
		}`)
	}))
	defer server.Close()

	cfg := config.LLMConfig{Type: config.LLMTypeOllama, Model: "llama3.2", BaseURL: server.URL}
	cfg.SetDefaults()
	cfg.BaseURL = server.URL

	resp, err := NewOllama(cfg).Generate(context.Background(), []Message{
		{Role: RoleUser, Content: "Convert 100 USD to EUR"},
	}, &GenerateOptions{Tools: []ToolDefinition{{Name: "currency_convert"}}})
	require.NoError(t, err)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "currency_convert", resp.ToolCalls[0].Name)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(resp.ToolCalls[0].Arguments), &args))
	assert.Equal(t, "USD", args["from"])
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-2.0-flash:generateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		require.Len(t, req.Contents, 1)
		assert.Equal(t, "user", req.Contents[0].Role)

		fmt.Fprint(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "The answer is 4."}]}}],
			"usageMetadata": {"totalTokenCount": 20}
		}`)
	}))
	defer server.Close()

	cfg := config.LLMConfig{Type: config.LLMTypeGemini, Model: "gemini-2.0-flash", APIKey: "test-key", BaseURL: server.URL}
	cfg.SetDefaults()
	cfg.BaseURL = server.URL

	resp, err := NewGemini(cfg).Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "Be brief."},
		{Role: RoleUser, Content: "2+2?"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "The answer is 4.", resp.Text)
	assert.Equal(t, 20, resp.TokensUsed)
}

func TestGeminiGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	cfg := config.LLMConfig{Type: config.LLMTypeGemini, Model: "gemini-2.0-flash", APIKey: "bad-key", BaseURL: server.URL}
	cfg.SetDefaults()
	cfg.BaseURL = server.URL

	_, err := NewGemini(cfg).Generate(context.Background(), []Message{{Role: RoleUser, Content: "Hi"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}
