package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hmkim/marketbrief/config"
)

// TavilyClient is the web-search provider client.
type TavilyClient struct {
	client *resty.Client
	apiKey string
}

func NewTavilyClient(cfg *config.Config) *TavilyClient {
	client := resty.New()
	client.SetBaseURL("https://api.tavily.com")
	client.SetTimeout(30 * time.Second)

	return &TavilyClient{
		client: client,
		apiKey: cfg.TavilyAPIKey,
	}
}

type tavilyRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth,omitempty"`
	Topic       string `json:"topic,omitempty"`
	MaxResults  int    `json:"max_results,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Result is one search hit, ordered by provider relevance.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

func (tc *TavilyClient) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if tc.apiKey == "" {
		return nil, fmt.Errorf("tavily API key not configured")
	}
	if maxResults <= 0 {
		maxResults = 3
	}

	resp, err := tc.client.R().
		SetContext(ctx).
		SetAuthToken(tc.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(tavilyRequest{
			Query:       query,
			SearchDepth: "basic",
			Topic:       "news",
			MaxResults:  maxResults,
		}).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}

	var payload tavilyResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("parse search response: %w", err)
	}

	results := make([]Result, 0, len(payload.Results))
	for _, r := range payload.Results {
		results = append(results, Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return results, nil
}
