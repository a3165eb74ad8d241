package config

import (
	"fmt"
	"os"
)

// Embedder provider types.
const (
	EmbedderTypeOpenAI = "openai"
	EmbedderTypeOllama = "ollama"
)

// EmbedderConfig describes one embedding provider.
type EmbedderConfig struct {
	Type       string `yaml:"type,omitempty" jsonschema:"enum=openai,enum=ollama"`
	Model      string `yaml:"model,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	Dimension  int    `yaml:"dimension,omitempty"`
	BatchSize  int    `yaml:"batch_size,omitempty"`
	Timeout    int    `yaml:"timeout,omitempty"`
	MaxRetries int    `yaml:"max_retries,omitempty"`
}

func (c *EmbedderConfig) SetDefaults() {
	if c.Type == "" {
		if os.Getenv("OPENAI_API_KEY") != "" {
			c.Type = EmbedderTypeOpenAI
		} else {
			c.Type = EmbedderTypeOllama
		}
	}

	switch c.Type {
	case EmbedderTypeOpenAI:
		if c.Model == "" {
			c.Model = "text-embedding-3-small"
		}
		if c.BaseURL == "" {
			c.BaseURL = "https://api.openai.com/v1"
		}
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if c.Dimension == 0 {
			c.Dimension = 1536
		}
	case EmbedderTypeOllama:
		if c.Model == "" {
			c.Model = "nomic-embed-text"
		}
		if c.BaseURL == "" {
			c.BaseURL = "http://localhost:11434"
		}
		if c.Dimension == 0 {
			c.Dimension = 768
		}
	}

	if c.BatchSize == 0 {
		c.BatchSize = 32
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *EmbedderConfig) Validate() error {
	switch c.Type {
	case EmbedderTypeOpenAI, EmbedderTypeOllama:
	default:
		return fmt.Errorf("unknown embedder type: %s", c.Type)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Type == EmbedderTypeOpenAI && c.APIKey == "" {
		return fmt.Errorf("api_key is required for openai")
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("dimension must be positive")
	}
	return nil
}
