package llms

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/registry"
)

// Provider generates chat completions for a single configured model.
type Provider interface {
	// Generate runs one completion and blocks until it finishes.
	Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (*Response, error)

	// GenerateStreaming emits chunks on the returned channel and closes it
	// when the completion ends. A read failure mid-stream surfaces as a
	// final ChunkError carrying the error.
	GenerateStreaming(ctx context.Context, messages []Message, opts *GenerateOptions) (<-chan StreamChunk, error)

	// Model reports the configured model name.
	Model() string
}

// Registry holds named providers built from config.
type Registry struct {
	*registry.Base[Provider]
}

func NewRegistry() *Registry {
	return &Registry{Base: registry.NewBase[Provider]()}
}

// New builds a provider from its config.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Type {
	case config.LLMTypeOpenAI:
		return NewOpenAI(cfg), nil
	case config.LLMTypeGemini:
		return NewGemini(cfg), nil
	case config.LLMTypeOllama:
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown llm type: %s", cfg.Type)
	}
}

// NewRegistryFromConfig builds all configured providers.
func NewRegistryFromConfig(cfgs map[string]config.LLMConfig) (*Registry, error) {
	reg := NewRegistry()
	for name, cfg := range cfgs {
		provider, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("llm '%s': %w", name, err)
		}
		if err := reg.Register(name, provider); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
