package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"

	"github.com/atelier-ai/atelier/pkg/agent"
	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/embedders"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/logger"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/session"
	"github.com/atelier-ai/atelier/pkg/tools"
	"github.com/atelier-ai/atelier/pkg/vector"
)

// loadConfig falls back to zero-config defaults when no file is given,
// so `atelier chat` works with nothing but an API key in the env.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		_ = godotenv.Load()
		return config.Parse(nil)
	}
	return config.Load(path)
}

// runtime holds every component wired from one config file.
type runtime struct {
	cfg       *config.Config
	llms      *llms.Registry
	embedders *embedders.Registry
	providers map[string]vector.Provider
	stores    map[string]*rag.Store
	tools     *tools.Registry
	agents    map[string]*agent.Agent
	sessions  session.Store
}

// buildRuntime loads the config and wires registries bottom-up:
// providers first, then stores, tools, and agents that reference them.
func buildRuntime(configPath string, logLevel, logFormat string) (*runtime, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	initLogger(cfg, logLevel, logFormat)

	rt := &runtime{
		cfg:       cfg,
		providers: make(map[string]vector.Provider),
		stores:    make(map[string]*rag.Store),
		agents:    make(map[string]*agent.Agent),
	}

	if rt.llms, err = llms.NewRegistryFromConfig(cfg.LLMs); err != nil {
		return nil, err
	}
	if rt.embedders, err = embedders.NewRegistryFromConfig(cfg.Embedders); err != nil {
		return nil, err
	}

	for name, vc := range cfg.VectorStores {
		provider, err := vector.New(vc)
		if err != nil {
			return nil, fmt.Errorf("vector store %s: %w", name, err)
		}
		rt.providers[name] = provider
	}

	for name, dc := range cfg.DocumentStores {
		embedder, ok := rt.embedders.Get(dc.Embedder)
		if !ok {
			return nil, fmt.Errorf("document store %s references unknown embedder: %s", name, dc.Embedder)
		}
		provider, ok := rt.providers[dc.VectorStore]
		if !ok {
			return nil, fmt.Errorf("document store %s references unknown vector store: %s", name, dc.VectorStore)
		}
		store, err := rag.NewStore(name, dc, embedder, provider)
		if err != nil {
			return nil, fmt.Errorf("document store %s: %w", name, err)
		}
		rt.stores[name] = store
	}

	rt.tools = tools.NewRegistry()
	for name, tc := range cfg.Tools {
		retrievers, err := rt.retrievers(tc.DocumentStores)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		tool, err := tools.New(name, tc, retrievers)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		if err := rt.tools.Register(name, tool); err != nil {
			return nil, err
		}
	}

	for name, ac := range cfg.Agents {
		llm, ok := rt.llms.Get(ac.LLM)
		if !ok {
			return nil, fmt.Errorf("agent %s references unknown llm: %s", name, ac.LLM)
		}
		rt.agents[name] = agent.New(name, ac, llm, rt.tools)
	}

	if rt.sessions, err = session.New(cfg.Session); err != nil {
		return nil, err
	}

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.sessions != nil {
		if err := rt.sessions.Close(); err != nil {
			slog.Error("failed to close session store", "error", err)
		}
	}
	for name, provider := range rt.providers {
		if err := provider.Close(); err != nil {
			slog.Error("failed to close vector store", "store", name, "error", err)
		}
	}
}

// retrievers resolves document store names. Empty means all stores.
func (rt *runtime) retrievers(names []string) ([]rag.Retriever, error) {
	if len(names) == 0 {
		out := make([]rag.Retriever, 0, len(rt.stores))
		for _, store := range rt.stores {
			out = append(out, store)
		}
		return out, nil
	}
	out := make([]rag.Retriever, 0, len(names))
	for _, name := range names {
		store, ok := rt.stores[name]
		if !ok {
			return nil, fmt.Errorf("unknown document store: %s", name)
		}
		out = append(out, store)
	}
	return out, nil
}

func (rt *runtime) agent(name string) (*agent.Agent, error) {
	a, ok := rt.agents[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s (configured: %s)", name, strings.Join(agentNames(rt.agents), ", "))
	}
	return a, nil
}

func agentNames(agents map[string]*agent.Agent) []string {
	names := make([]string, 0, len(agents))
	for name := range agents {
		names = append(names, name)
	}
	return names
}

// selfRAG wires the answer flow, including the web-search fallback when
// the configured search tool is available.
func (rt *runtime) selfRAG() (*rag.SelfRAG, error) {
	if len(rt.stores) == 0 {
		return nil, fmt.Errorf("no document stores configured")
	}

	cfg := rt.cfg.SelfRAG
	llm, ok := rt.llms.Get(cfg.LLM)
	if !ok {
		return nil, fmt.Errorf("selfrag references unknown llm: %s", cfg.LLM)
	}
	retrievers, err := rt.retrievers(cfg.DocumentStores)
	if err != nil {
		return nil, err
	}

	var search rag.SearchFunc
	if cfg.WebSearchFallback {
		tool, ok := rt.tools.Get(cfg.SearchTool)
		if !ok {
			return nil, fmt.Errorf("selfrag references unknown search tool: %s", cfg.SearchTool)
		}
		ws, ok := tool.(*tools.WebSearch)
		if !ok {
			return nil, fmt.Errorf("selfrag search tool %s is not a web search tool", cfg.SearchTool)
		}
		search = webSearchFunc(ws)
	}

	return rag.NewSelfRAG(cfg, llm, retrievers, search), nil
}

// webSearchFunc flattens search hits into snippet text for grounding.
func webSearchFunc(ws *tools.WebSearch) rag.SearchFunc {
	return func(ctx context.Context, query string) (string, error) {
		hits, err := ws.Search(ctx, query)
		if err != nil {
			return "", err
		}
		parts := make([]string, 0, len(hits))
		for _, hit := range hits {
			parts = append(parts, fmt.Sprintf("%s\n%s (%s)", hit.Title, hit.Snippet, hit.Link))
		}
		return strings.Join(parts, "\n\n"), nil
	}
}

func initLogger(cfg *config.Config, levelOverride, formatOverride string) {
	levelStr := cfg.Logger.Level
	if levelOverride != "" {
		levelStr = levelOverride
	}
	formatStr := cfg.Logger.Format
	if formatOverride != "" {
		formatStr = formatOverride
	}

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		slog.Warn("unknown log level, using info", "level", levelStr)
	}
	logger.Init(logger.Options{Level: level, Format: logger.Format(formatStr)})
}
