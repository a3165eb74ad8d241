package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/httpclient"
	"github.com/atelier-ai/atelier/pkg/llms"
)

// Weather reports current conditions from OpenWeatherMap.
type Weather struct {
	name   string
	cfg    config.ToolConfig
	client *httpclient.Client
}

func NewWeather(name string, cfg config.ToolConfig) *Weather {
	return &Weather{
		name: name,
		cfg:  cfg,
		client: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}),
		),
	}
}

func (t *Weather) Definition() llms.ToolDefinition {
	return llms.ToolDefinition{
		Name:        t.name,
		Description: "Get the current weather for a city.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name, optionally with country code, e.g. 'Paris,FR'",
				},
			},
			"required": []string{"city"},
		},
	}
}

func (t *Weather) Execute(ctx context.Context, args map[string]any) ToolResult {
	start := time.Now()

	city := strings.TrimSpace(stringArg(args, "city"))
	if city == "" {
		return failure(start, "city is required")
	}

	endpoint := t.cfg.BaseURL
	if endpoint == "" {
		endpoint = "https://api.openweathermap.org/data/2.5"
	}
	query := url.Values{}
	query.Set("q", city)
	query.Set("appid", t.cfg.APIKey)
	query.Set("units", t.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		strings.TrimSuffix(endpoint, "/")+"/weather?"+query.Encode(), nil)
	if err != nil {
		return failure(start, "failed to build request: %v", err)
	}

	// Do returns both the response and an error for non-2xx statuses.
	resp, err := t.client.Do(req)
	if resp == nil {
		return failure(start, "weather lookup failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return failure(start, "city not found: %s", city)
	}
	if resp.StatusCode != http.StatusOK {
		return failure(start, "weather lookup failed: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Name    string `json:"name"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return failure(start, "failed to decode response: %v", err)
	}

	description := ""
	if len(parsed.Weather) > 0 {
		description = parsed.Weather[0].Description
	}
	unit := "°C"
	if t.cfg.Units == "imperial" {
		unit = "°F"
	}

	return success(fmt.Sprintf(
		"Weather in %s: %s, %.1f%s (feels like %.1f%s), humidity %d%%, wind %.1f m/s",
		parsed.Name, description,
		parsed.Main.Temp, unit, parsed.Main.FeelsLike, unit,
		parsed.Main.Humidity, parsed.Wind.Speed), start)
}
