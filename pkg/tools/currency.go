package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
	"github.com/atelier-ai/atelier/pkg/llms"
)

// CurrencyConvert converts amounts using exchangerate-api latest rates.
type CurrencyConvert struct {
	name   string
	cfg    config.ToolConfig
	client *httpclient.Client
}

func NewCurrencyConvert(name string, cfg config.ToolConfig) *CurrencyConvert {
	return &CurrencyConvert{
		name: name,
		cfg:  cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
	}
}

func (t *CurrencyConvert) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Convert an amount from one currency to another using current exchange rates.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"amount": map[string]any{
					"type":        "number",
					"description": "The amount to convert",
				},
				"from": map[string]any{
					"type":        "string",
					"description": "Source currency code, e.g. USD",
				},
				"to": map[string]any{
					"type":        "string",
					"description": "Target currency code, e.g. EUR",
				},
			},
			"required": []string{"amount", "from", "to"},
		},
	}
}

func (t *CurrencyConvert) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	amount, ok := floatArg(args, "amount")
	if !ok {
		return failure(start, "amount is required")
	}
	from := strings.ToUpper(strings.TrimSpace(stringArg(args, "from")))
	to := strings.ToUpper(strings.TrimSpace(stringArg(args, "to")))
	if from == "" || to == "" {
		return failure(start, "from and to currency codes are required")
	}

	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://api.exchangerate-api.com/v4/latest"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(endpoint, "/")+"/"+from, nil)
	if err != nil {
		return failure(start, "failed to build request: %v", err)
	}

	resp, err := t.client.Do(req)
	if resp == nil {
		return failure(start, "rate lookup failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return failure(start, "rate lookup failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return failure(start, "failed to decode response: %v", err)
	}

	rate, ok := parsed.Rates[to]
	if !ok {
		return failure(start, "unknown target currency: %s", to)
	}

	return success(fmt.Sprintf("%.2f %s = %.2f %s (rate: %.6f)",
		amount, from, amount*rate, to, rate), start)
}
