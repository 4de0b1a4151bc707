package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	tavilyAPIURL     = "https://api.tavily.com"
	tavilySearchPath = "/search"
)

var (
	tavilyIncludeDomains = []string{"crunchbase.com", "pitchbook.com", "techcrunch.com", "forbes.com"}
	tavilyExcludeDomains = []string{"wikipedia.org"}
)

type Tavily struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewTavily(logger *zap.Logger, apiKey string) *Tavily {
	return &Tavily{
		apiKey: apiKey,
		APIURL: tavilyAPIURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (t *Tavily) Name() string { return "tavily" }

func (t *Tavily) IsEnabled() bool { return t.apiKey != "" }

type tavilyRequest struct {
	APIKey         string   `json:"api_key"`
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	MaxResults     int      `json:"max_results"`
	IncludeDomains []string `json:"include_domains,omitempty"`
	ExcludeDomains []string `json:"exclude_domains,omitempty"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (t *Tavily) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	payload := &tavilyRequest{
		APIKey:         t.apiKey,
		Query:          query,
		SearchDepth:    "advanced",
		MaxResults:     limit,
		IncludeDomains: tavilyIncludeDomains,
		ExcludeDomains: tavilyExcludeDomains,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal tavily request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.APIURL+tavilySearchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	t.logger.Debug("tavily search", zap.String("query", query), zap.Int("limit", limit))

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var parsed tavilyResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse tavily response: %w", err)
	}

	results := make([]*Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, &Result{
			Title:         r.Title,
			URL:           r.URL,
			Text:          r.Content,
			PublishedDate: r.PublishedDate,
		})
	}

	return results, nil
}
