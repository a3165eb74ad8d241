package tools

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
	"github.com/atelier-ai/atelier/pkg/llms"
)

// ArxivSearch queries the arXiv Atom API for papers.
type ArxivSearch struct {
	name   string
	cfg    config.ToolConfig
	client *httpclient.Client
}

func NewArxivSearch(name string, cfg config.ToolConfig) *ArxivSearch {
	return &ArxivSearch{
		name: name,
		cfg:  cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
	}
}

func (t *ArxivSearch) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Search arXiv for academic papers. Returns titles, authors, and abstracts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Search terms, e.g. 'transformer attention'",
				},
			},
			"required": []string{"query"},
		},
	}
}

type arxivFeed struct {
	Entries []struct {
		Title     string `xml:"title"`
		Summary   string `xml:"summary"`
		Published string `xml:"published"`
		ID        string `xml:"id"`
		Authors   []struct {
			Name string `xml:"name"`
		} `xml:"author"`
	} `xml:"entry"`
}

func (t *ArxivSearch) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	query := strings.TrimSpace(stringArg(args, "query"))
	if query == "" {
		return failure(start, "query is required")
	}

	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://export.arxiv.org/api/query"
	}
	params := url.Values{}
	params.Set("search_query", "all:"+query)
	params.Set("start", "0")
	params.Set("max_results", fmt.Sprintf("%d", t.cfg.MaxResults))
	params.Set("sortBy", "relevance")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return failure(start, "failed to build request: %v", err)
	}

	resp, err := t.client.Do(req)
	if resp == nil {
		return failure(start, "arxiv query failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failure(start, "arxiv query failed: HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return failure(start, "failed to parse feed: %v", err)
	}
	if len(feed.Entries) == 0 {
		return success("No papers found.", start)
	}

	var sb strings.Builder
	for _, entry := range feed.Entries {
		authors := make([]string, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			authors = append(authors, a.Name)
		}
		fmt.Fprintf(&sb, "Title: %s\nAuthors: %s\nPublished: %s\nLink: %s\nAbstract: %s\n\n",
			normalizeSpace(entry.Title),
			strings.Join(authors, ", "),
			entry.Published,
			entry.ID,
			normalizeSpace(entry.Summary))
	}
	return success(strings.TrimSpace(sb.String()), start)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
