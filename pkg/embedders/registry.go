// Package embedders provides text embedding providers (OpenAI, Ollama)
// behind a common interface.
package embedders

import (
	"context"
	"fmt"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/registry"
)

// Embedder turns text into vectors.
type Embedder interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension reports the vector width this embedder produces.
	Dimension() int
}

// Registry holds named embedders built from config.
type Registry struct {
	*registry.Base[Embedder]
}

func NewRegistry() *Registry {
	return &Registry{Base: registry.NewBase[Embedder]()}
}

// New builds an embedder from its config.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Type {
	case config.EmbedderTypeOpenAI:
		return NewOpenAI(cfg), nil
	case config.EmbedderTypeOllama:
		return NewOllama(cfg), nil
	default:
		return nil, fmt.Errorf("unknown embedder type: %s", cfg.Type)
	}
}

// NewRegistryFromConfig builds all configured embedders.
func NewRegistryFromConfig(cfgs map[string]config.EmbedderConfig) (*Registry, error) {
	reg := NewRegistry()
	for name, cfg := range cfgs {
		embedder, err := New(cfg)
		if err != nil {
			return nil, fmt.Errorf("embedder '%s': %w", name, err)
		}
		if err := reg.Register(name, embedder); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
