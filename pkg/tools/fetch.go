package tools

import (
	"context"
	"fmt"
	stdhtml "html"
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

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style|noscript|head)[^>]*>.*?</(script|style|noscript|head)>`)
	blockTagRe    = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr|br)>|<br\s*/?>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
	blankLinesRe  = regexp.MustCompile(`\n{3,}`)
)

// FetchPage downloads a web page and reduces it to readable text.
type FetchPage struct {
	name   string
	cfg    config.ToolConfig
	client *httpclient.Client
}

func NewFetchPage(name string, cfg config.ToolConfig) *FetchPage {
	return &FetchPage{
		name: name,
		cfg:  cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
	}
}

func (t *FetchPage) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Fetch a web page and return its text content. Useful for reading articles found via search.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "The URL to fetch",
				},
			},
			"required": []string{"url"},
		},
	}
}

func (t *FetchPage) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	raw := strings.TrimSpace(stringArg(args, "url"))
	if raw == "" {
		return failure(start, "url is required")
	}

	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return failure(start, "invalid url: %s", raw)
	}
	if err := t.checkDomain(parsed.Hostname()); err != nil {
		return failure(start, "%v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return failure(start, "failed to build request: %v", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; atelier)")

	resp, err := t.client.Do(req)
	if resp == nil {
		return failure(start, "fetch failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failure(start, "fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(t.cfg.MaxContentLength)*4))
	if err != nil {
		return failure(start, "failed to read body: %v", err)
	}

	text := htmlToText(string(body))
	if len(text) > t.cfg.MaxContentLength {
		text = text[:t.cfg.MaxContentLength] + "\n... (truncated)"
	}
	return success(text, start)
}

func (t *FetchPage) checkDomain(host string) error {
	host = strings.ToLower(host)
	for _, denied := range t.cfg.DeniedDomains {
		if matchDomain(host, denied) {
			return fmt.Errorf("domain %s is denied", host)
		}
	}
	if len(t.cfg.AllowedDomains) == 0 {
		return nil
	}
	for _, allowed := range t.cfg.AllowedDomains {
		if matchDomain(host, allowed) {
			return nil
		}
	}
	return fmt.Errorf("domain %s is not in the allowed list", host)
}

func matchDomain(host, pattern string) bool {
	pattern = strings.ToLower(pattern)
	return host == pattern || strings.HasSuffix(host, "."+pattern)
}

func htmlToText(page string) string {
	page = scriptStyleRe.ReplaceAllString(page, "")
	page = blockTagRe.ReplaceAllString(page, "\n")
	page = anyTagRe.ReplaceAllString(page, " ")
	page = stdhtml.UnescapeString(page)

	lines := strings.Split(page, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	page = strings.Join(lines, "\n")
	page = blankLinesRe.ReplaceAllString(page, "\n\n")
	return strings.TrimSpace(page)
}
