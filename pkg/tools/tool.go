// Package tools provides the tools agents can call: web search, page
// fetching, weather, currency conversion, arXiv search, and semantic
// retrieval over document stores.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/registry"
)

// ToolResult is the outcome of one tool execution. Tools do not return Go
// errors: a failure is a result with Success false and Error set, which
// flows back to the model as a readable message.
type ToolResult struct {
	Success       bool
	Content       string
	Error         string
	ExecutionTime time.Duration
}

// Tool is one callable capability advertised to the model.
type Tool interface {
	Definition() llms.ToolDefinition
	Execute(ctx context.Context, args map[string]any) ToolResult
}

// Registry holds named tools built from config.
type Registry struct {
	*registry.Base[Tool]
}

func NewRegistry() *Registry {
	return &Registry{Base: registry.NewBase[Tool]()}
}

// Definitions returns the tool definitions for the named tools, in order.
func (r *Registry) Definitions(names []string) ([]llms.ToolDefinition, error) {
	defs := make([]llms.ToolDefinition, 0, len(names))
	for _, name := range names {
		tool, ok := r.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown tool: %s", name)
		}
		defs = append(defs, tool.Definition())
	}
	return defs, nil
}

// New builds a tool from its config. Retrieval tools need the document
// stores they search over.
func New(name string, cfg config.ToolConfig, stores []rag.Retriever) (Tool, error) {
	switch cfg.Type {
	case config.ToolTypeWebSearch:
		return NewWebSearch(name, cfg), nil
	case config.ToolTypeFetchPage:
		return NewFetchPage(name, cfg), nil
	case config.ToolTypeWeather:
		return NewWeather(name, cfg), nil
	case config.ToolTypeCurrencyConvert:
		return NewCurrencyConvert(name, cfg), nil
	case config.ToolTypeArxivSearch:
		return NewArxivSearch(name, cfg), nil
	case config.ToolTypeRetrieval:
		return NewRetrieval(name, cfg, stores), nil
	default:
		return nil, fmt.Errorf("unknown tool type: %s", cfg.Type)
	}
}

func success(content string, start time.Time) ToolResult {
	return ToolResult{Success: true, Content: content, ExecutionTime: time.Since(start)}
}

func failure(start time.Time, format string, args ...any) ToolResult {
	return ToolResult{Error: fmt.Sprintf(format, args...), ExecutionTime: time.Since(start)}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func floatArg(args map[string]any, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}
