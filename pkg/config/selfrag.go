package config

import "fmt"

// SelfRAGConfig controls the retrieve-grade-generate-reflect answer flow.
type SelfRAGConfig struct {
	LLM               string   `yaml:"llm,omitempty"`
	DocumentStores    []string `yaml:"document_stores,omitempty"`
	TopK              int      `yaml:"top_k,omitempty"`
	WebSearchFallback bool     `yaml:"web_search_fallback,omitempty"`
	SearchTool        string   `yaml:"search_tool,omitempty" jsonschema:"description=Tool name used for the fallback search"`
}

func (c *SelfRAGConfig) SetDefaults(root *Config) {
	if c.LLM == "" {
		c.LLM = firstKey(root.LLMs)
	}
	if c.TopK == 0 {
		c.TopK = 4
	}
	if c.WebSearchFallback && c.SearchTool == "" {
		c.SearchTool = ToolTypeWebSearch
	}
}

func (c *SelfRAGConfig) Validate(root *Config) error {
	if _, ok := root.LLMs[c.LLM]; !ok {
		return fmt.Errorf("references unknown llm: %s", c.LLM)
	}
	for _, store := range c.DocumentStores {
		if _, ok := root.DocumentStores[store]; !ok {
			return fmt.Errorf("references unknown document store: %s", store)
		}
	}
	if c.TopK < 1 || c.TopK > 50 {
		return fmt.Errorf("top_k must be between 1 and 50")
	}
	return nil
}
