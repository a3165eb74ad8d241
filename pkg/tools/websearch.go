package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
	"github.com/atelier-ai/atelier/pkg/llms"
)

// SearchHit is one search result row.
type SearchHit struct {
	Title   string
	Link    string
	Snippet string
}

// WebSearch queries the configured search backend.
type WebSearch struct {
	name   string
	cfg    config.ToolConfig
	client *httpclient.Client
}

func NewWebSearch(name string, cfg config.ToolConfig) *WebSearch {
	return &WebSearch{
		name: name,
		cfg:  cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
	}
}

func (t *WebSearch) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Search the web for current information. Returns titles, links, and snippets.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query",
				},
			},
			"required": []string{"query"},
		},
	}
}

func (t *WebSearch) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return failure(start, "query is required")
	}

	hits, err := t.Search(ctx, query)
	if err != nil {
		return failure(start, "search failed: %v", err)
	}
	if len(hits) == 0 {
		return success("No results found.", start)
	}

	var sb strings.Builder
	for _, hit := range hits {
		fmt.Fprintf(&sb, "Title: %s\nLink: %s\nSnippet: %s\n\n", hit.Title, hit.Link, hit.Snippet)
	}
	return success(strings.TrimSpace(sb.String()), start)
}

// Search runs a query and returns structured hits. It also backs the
// Self-RAG web fallback.
func (t *WebSearch) Search(ctx context.Context, query string) ([]SearchHit, error) {
	switch t.cfg.Backend {
	case config.SearchBackendTavily:
		return t.searchTavily(ctx, query)
	case config.SearchBackendSerper:
		return t.searchSerper(ctx, query)
	default:
		return t.searchDuckDuckGo(ctx, query)
	}
}

func (t *WebSearch) searchTavily(ctx context.Context, query string) ([]SearchHit, error) {
	body, err := json.Marshal(map[string]any{
		"query":       query,
		"max_results": t.cfg.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://api.tavily.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(endpoint, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if resp == nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily returned HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		hits = append(hits, SearchHit{Title: r.Title, Link: r.URL, Snippet: r.Content})
	}
	return hits, nil
}

func (t *WebSearch) searchSerper(ctx context.Context, query string) ([]SearchHit, error) {
	body, err := json.Marshal(map[string]any{"q": query})
	if err != nil {
		return nil, err
	}

	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://google.serper.dev"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(endpoint, "/")+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if resp == nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper returned HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, t.cfg.MaxResults)
	for i, r := range parsed.Organic {
		if i >= t.cfg.MaxResults {
			break
		}
		hits = append(hits, SearchHit{Title: r.Title, Link: r.Link, Snippet: r.Snippet})
	}
	return hits, nil
}

var (
	ddgResultRe  = regexp.MustCompile(`<a[^>]+class="result__a"[^>]*href="([^"]+)"[^>]*>(.*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
)

// searchDuckDuckGo scrapes the keyless HTML endpoint. Layout changes can
// break it, so it is only the default when no API key is configured.
func (t *WebSearch) searchDuckDuckGo(ctx context.Context, query string) ([]SearchHit, error) {
	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://html.duckduckgo.com"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(endpoint, "/")+"/html/?q="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; atelier)")

	resp, err := t.client.Do(req)
	if resp == nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo returned HTTP %d", resp.StatusCode)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 2*1024*1024))
	if err != nil {
		return nil, err
	}

	links := ddgResultRe.FindAllStringSubmatch(string(page), t.cfg.MaxResults)
	snippets := ddgSnippetRe.FindAllStringSubmatch(string(page), t.cfg.MaxResults)

	hits := make([]SearchHit, 0, len(links))
	for i, m := range links {
		hit := SearchHit{
			Link:  html.UnescapeString(m[1]),
			Title: html.UnescapeString(tagRe.ReplaceAllString(m[2], "")),
		}
		if i < len(snippets) {
			hit.Snippet = html.UnescapeString(tagRe.ReplaceAllString(snippets[i][1], ""))
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
