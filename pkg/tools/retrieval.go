package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/rag"
)

// Retrieval searches the configured document stores semantically.
type Retrieval struct {
	name   string
	cfg    config.ToolConfig
	stores []rag.Retriever
}

func NewRetrieval(name string, cfg config.ToolConfig, stores []rag.Retriever) *Retrieval {
	return &Retrieval{name: name, cfg: cfg, stores: stores}
}

func (t *Retrieval) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Search the indexed document stores for passages relevant to a query.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to look for",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *Retrieval) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return failure(start, "query is required")
	}
	if len(t.stores) == 0 {
		return failure(start, "no document stores configured")
	}

	var sb strings.Builder
	found := 0
	for _, store := range t.stores {
		results, err := store.Search(ctx, query, t.cfg.TopK)
		if err != nil {
			return failure(start, "search in %s failed: %v", store.Name(), err)
		}
		for _, r := range results {
			found++
			source := r.Metadata["source"]
			fmt.Fprintf(&sb, "[%s score=%.3f] %s\n\n", source, r.Score, r.Content)
		}
	}

	if found == 0 {
		return success("No relevant passages found.", start)
	}
	return success(strings.TrimSpace(sb.String()), start)
}
