package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/vector"
)

func toolConfig(toolType, backend, url string) config.ToolConfig {
	cfg := config.ToolConfig{Type: toolType, Backend: backend, APIKey: "test-key", BaseURL: url}
	cfg.SetDefaults(toolType)
	cfg.BaseURL = url
	return cfg
}

func TestWebSearchSerper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		fmt.Fprint(w, `{"organic": [
			{"title": "Go", "link": "https://go.dev", "snippet": "The Go programming language"},
			{"title": "Tour", "link": "https://go.dev/tour", "snippet": "A tour of Go"}
		]}`)
	}))
	defer server.Close()

	tool := NewWebSearch("web_search", toolConfig(config.ToolTypeWebSearch, config.SearchBackendSerper, server.URL))
	result := tool.Execute(context.Background(), map[string]any{"query": "golang"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "Title: Go")
	assert.Contains(t, result.Content, "Link: https://go.dev")
}

func TestWebSearchTavily(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, `{"results": [{"title": "Result", "url": "https://example.com", "content": "A snippet"}]}`)
	}))
	defer server.Close()

	tool := NewWebSearch("web_search", toolConfig(config.ToolTypeWebSearch, config.SearchBackendTavily, server.URL))
	hits, err := tool.Search(context.Background(), "anything")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Result", hits[0].Title)
	assert.Equal(t, "A snippet", hits[0].Snippet)
}

func TestWebSearchMissingQuery(t *testing.T) {
	tool := NewWebSearch("web_search", toolConfig(config.ToolTypeWebSearch, config.SearchBackendSerper, "http://unused"))
	result := tool.Execute(context.Background(), map[string]any{})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "query is required")
}

func TestCurrencyConvert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		fmt.Fprint(w, `{"rates": {"EUR": 0.9, "GBP": 0.8}}`)
	}))
	defer server.Close()

	tool := NewCurrencyConvert("currency_convert", toolConfig(config.ToolTypeCurrencyConvert, "", server.URL))
	result := tool.Execute(context.Background(), map[string]any{"amount": 100.0, "from": "usd", "to": "eur"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "100.00 USD = 90.00 EUR")
}

func TestCurrencyConvertUnknownTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates": {"EUR": 0.9}}`)
	}))
	defer server.Close()

	tool := NewCurrencyConvert("currency_convert", toolConfig(config.ToolTypeCurrencyConvert, "", server.URL))
	result := tool.Execute(context.Background(), map[string]any{"amount": 5.0, "from": "USD", "to": "XYZ"})

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unknown target currency")
}

func TestWeather(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		fmt.Fprint(w, `{
			"name": "London",
			"weather": [{"description": "light rain"}],
			"main": {"temp": 14.2, "feels_like": 13.1, "humidity": 82},
			"wind": {"speed": 4.6}
		}`)
	}))
	defer server.Close()

	cfg := toolConfig(config.ToolTypeWeather, "", server.URL)
	cfg.Units = "metric"
	tool := NewWeather("weather", cfg)
	result := tool.Execute(context.Background(), map[string]any{"city": "London"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "London")
	assert.Contains(t, result.Content, "light rain")
	assert.Contains(t, result.Content, "14.2°C")
}

func TestWeatherCityNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	tool := NewWeather("weather", toolConfig(config.ToolTypeWeather, "", server.URL))
	result := tool.Execute(context.Background(), map[string]any{"city": "Atlantis"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "city not found")
}

func TestArxivSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Query().Get("search_query"), "attention")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1706.03762</id>
    <title>Attention Is All You Need</title>
    <summary>The dominant sequence transduction models...</summary>
    <published>2017-06-12T17:57:34Z</published>
    <author><name>Ashish Vaswani</name></author>
  </entry>
</feed>`)
	}))
	defer server.Close()

	tool := NewArxivSearch("arxiv_search", toolConfig(config.ToolTypeArxivSearch, "", server.URL))
	result := tool.Execute(context.Background(), map[string]any{"query": "attention"})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "Attention Is All You Need")
	assert.Contains(t, result.Content, "Ashish Vaswani")
}

func TestFetchPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>T</title><script>var x=1;</script></head>
<body><h1>Heading</h1><p>First paragraph.</p><p>Second &amp; last.</p></body></html>`)
	}))
	defer server.Close()

	tool := NewFetchPage("fetch_page", toolConfig(config.ToolTypeFetchPage, "", ""))
	result := tool.Execute(context.Background(), map[string]any{"url": server.URL})

	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "Heading")
	assert.Contains(t, result.Content, "First paragraph.")
	assert.Contains(t, result.Content, "Second & last.")
	assert.NotContains(t, result.Content, "var x=1")
}

func TestFetchPageDomainDenied(t *testing.T) {
	cfg := toolConfig(config.ToolTypeFetchPage, "", "")
	cfg.DeniedDomains = []string{"blocked.example"}
	tool := NewFetchPage("fetch_page", cfg)

	result := tool.Execute(context.Background(), map[string]any{"url": "https://blocked.example/page"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "denied")

	result = tool.Execute(context.Background(), map[string]any{"url": "ftp://example.com"})
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid url")
}

type staticRetriever struct {
	name    string
	results []vector.SearchResult
}

func (s *staticRetriever) Name() string { return s.name }

func (s *staticRetriever) Search(context.Context, string, int) ([]vector.SearchResult, error) {
	return s.results, nil
}

func TestRetrieval(t *testing.T) {
	retriever := &staticRetriever{
		name: "docs",
		results: []vector.SearchResult{
			{ID: "1", Content: "Relevant passage.", Score: 0.95, Metadata: map[string]string{"source": "a.md"}},
		},
	}

	cfg := toolConfig(config.ToolTypeRetrieval, "", "")
	tool := NewRetrieval("retrieval", cfg, []rag.Retriever{retriever})

	result := tool.Execute(context.Background(), map[string]any{"query": "passage"})
	require.True(t, result.Success, result.Error)
	assert.Contains(t, result.Content, "Relevant passage.")
	assert.Contains(t, result.Content, "a.md")
}

func TestRegistryDefinitions(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register("weather", NewWeather("weather", toolConfig(config.ToolTypeWeather, "", ""))))

	defs, err := reg.Definitions([]string{"weather"})
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "weather", defs[0].Name)

	_, err = reg.Definitions([]string{"nope"})
	require.Error(t, err)
}
