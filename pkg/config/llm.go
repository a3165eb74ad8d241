package config

import (
	"fmt"
	"os"
)

// LLM provider types.
const (
	LLMTypeOpenAI = "openai"
	LLMTypeGemini = "gemini"
	LLMTypeOllama = "ollama"
)

// LLMConfig describes one chat-completion provider. Groq and OpenRouter are
// reached through the openai type with a base_url override.
type LLMConfig struct {
	Type        string  `yaml:"type,omitempty" jsonschema:"enum=openai,enum=gemini,enum=ollama"`
	Model       string  `yaml:"model,omitempty"`
	APIKey      string  `yaml:"api_key,omitempty"`
	BaseURL     string  `yaml:"base_url,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Timeout     int     `yaml:"timeout,omitempty" jsonschema:"description=Request timeout in seconds"`
	MaxRetries  int     `yaml:"max_retries,omitempty"`
}

// SetDefaults detects a provider from the environment when none is
// configured, so a bare config works with whatever key is present.
func (c *LLMConfig) SetDefaults() {
	if c.Type == "" {
		switch {
		case os.Getenv("OPENAI_API_KEY") != "":
			c.Type = LLMTypeOpenAI
		case os.Getenv("GROQ_API_KEY") != "":
			c.Type = LLMTypeOpenAI
			c.BaseURL = "https://api.groq.com/openai/v1"
			c.APIKey = os.Getenv("GROQ_API_KEY")
		case os.Getenv("GEMINI_API_KEY") != "":
			c.Type = LLMTypeGemini
		default:
			c.Type = LLMTypeOllama
		}
	}

	switch c.Type {
	case LLMTypeOpenAI:
		if c.Model == "" {
			c.Model = "gpt-4o-mini"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	case LLMTypeGemini:
		if c.Model == "" {
			c.Model = "gemini-2.0-flash"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	case LLMTypeOllama:
		if c.Model == "" {
			c.Model = "llama3.2"
		}
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:11434"
		}
	}

	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.Timeout == 0 {
		c.Timeout = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *LLMConfig) Validate() error {
	switch c.Type {
	case LLMTypeOpenAI, LLMTypeGemini, LLMTypeOllama:
	default:
		return fmt.Errorf("unknown llm type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Type != LLMTypeOllama && c.APIKey == "" {
		return fmt.Errorf("api_key is required for %s", c.Type)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}
