package config

import (
	"fmt"
	"os"
)

// Tool types. A config entry may rename a built-in; the type selects the
// implementation.
const (
	ToolTypeWebSearch       = "web_search"
	ToolTypeFetchPage       = "fetch_page"
	ToolTypeWeather         = "weather"
	ToolTypeCurrencyConvert = "currency_convert"
	ToolTypeArxivSearch     = "arxiv_search"
	ToolTypeRetrieval       = "retrieval"
)

// Web search backends.
const (
	SearchBackendTavily     = "tavily"
	SearchBackendSerper     = "serper"
	SearchBackendDuckDuckGo = "duckduckgo"
)

func isBuiltinTool(name string) bool {
	switch name {
	case ToolTypeWebSearch, ToolTypeFetchPage, ToolTypeWeather,
		ToolTypeCurrencyConvert, ToolTypeArxivSearch, ToolTypeRetrieval:
		return true
	}
	return false
}

// ToolConfig describes one configured tool instance.
type ToolConfig struct {
	Type       string `yaml:"type,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	MaxResults int    `yaml:"max_results,omitempty"`
	Timeout    int    `yaml:"timeout,omitempty"`

	// web_search
	Backend string `yaml:"backend,omitempty" jsonschema:"enum=tavily,enum=serper,enum=duckduckgo"`

	// fetch_page
	MaxContentLength int      `yaml:"max_content_length,omitempty"`
	AllowedDomains   []string `yaml:"allowed_domains,omitempty"`
	DeniedDomains    []string `yaml:"denied_domains,omitempty"`

	// weather
	Units string `yaml:"units,omitempty" jsonschema:"enum=metric,enum=imperial"`

	// retrieval
	DocumentStores []string `yaml:"document_stores,omitempty"`
	TopK           int      `yaml:"top_k,omitempty"`
}

func (c *ToolConfig) SetDefaults(name string) {
	if c.Type == "" && isBuiltinTool(name) {
		c.Type = name
	}

	switch c.Type {
	case ToolTypeWebSearch:
		if c.Backend == "" {
			switch {
			case os.Getenv("TAVILY_API_KEY") != "":
				c.Backend = SearchBackendTavily
			case os.Getenv("SERPER_API_KEY") != "":
				c.Backend = SearchBackendSerper
			default:
				c.Backend = SearchBackendDuckDuckGo
			}
		}
		if c.APIKey == "" {
			switch c.Backend {
			case SearchBackendTavily:
				c.APIKey = os.Getenv("TAVILY_API_KEY")
			case SearchBackendSerper:
				c.APIKey = os.Getenv("SERPER_API_KEY")
			}
		}
		if c.MaxResults == 0 {
			c.MaxResults = 4
		}
	case ToolTypeFetchPage:
		if c.MaxContentLength == 0 {
			c.MaxContentLength = 100000
		}
	case ToolTypeWeather:
		if c.APIKey == "" {
			c.APIKey = os.Getenv("OPENWEATHERMAP_API_KEY")
		}
		if c.Units == "" {
			c.Units = "metric"
		}
	case ToolTypeArxivSearch:
		if c.MaxResults == 0 {
			c.MaxResults = 5
		}
	case ToolTypeRetrieval:
		if c.TopK == 0 {
			c.TopK = 5
		}
	}

	if c.Timeout == 0 {
		c.Timeout = 30
	}
}

func (c *ToolConfig) Validate() error {
	if !isBuiltinTool(c.Type) {
		return fmt.Errorf("unknown tool type: %s", c.Type)
	}

	switch c.Type {
	case ToolTypeWebSearch:
		switch c.Backend {
		case SearchBackendTavily, SearchBackendSerper, SearchBackendDuckDuckGo:
		default:
			return fmt.Errorf("unknown search backend: %s", c.Backend)
		}
		if c.Backend != SearchBackendDuckDuckGo && c.APIKey == "" {
			return fmt.Errorf("api_key is required for %s backend", c.Backend)
		}
	case ToolTypeWeather:
		if c.APIKey == "" {
			return fmt.Errorf("api_key is required")
		}
	}

	return nil
}
