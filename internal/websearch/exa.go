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
	exaAPIURL     = "https://api.exa.ai"
	exaSearchPath = "/search"
)

// exaIncludeDomains limits results to sources that actually profile
// companies.
var exaIncludeDomains = []string{
	"crunchbase.com", "linkedin.com", "bloomberg.com",
	"reuters.com", "finance.yahoo.com", "sec.gov",
}

type Exa struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewExa(logger *zap.Logger, apiKey string) *Exa {
	return &Exa{
		apiKey: apiKey,
		APIURL: exaAPIURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (e *Exa) Name() string { return "exa" }

func (e *Exa) IsEnabled() bool { return e.apiKey != "" }

type exaRequest struct {
	Query          string          `json:"query"`
	NumResults     int             `json:"num_results"`
	IncludeDomains []string        `json:"include_domains,omitempty"`
	StartCrawlDate string          `json:"start_crawl_date,omitempty"`
	EndCrawlDate   string          `json:"end_crawl_date,omitempty"`
	Type           string          `json:"type"`
	Contents       *exaContentOpts `json:"contents,omitempty"`
}

type exaContentOpts struct {
	Text bool `json:"text"`
}

type exaResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Text          string `json:"text"`
		PublishedDate string `json:"publishedDate"`
	} `json:"results"`
}

func (e *Exa) Search(ctx context.Context, query string, limit int) ([]*Result, error) {
	payload := &exaRequest{
		Query:          query,
		NumResults:     limit,
		IncludeDomains: exaIncludeDomains,
		StartCrawlDate: "2023-01-01",
		EndCrawlDate:   time.Now().Format("2006-01-02"),
		Type:           "keyword",
		Contents:       &exaContentOpts{Text: true},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.APIURL+exaSearchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", e.apiKey))
	req.Header.Set("Content-Type", "application/json")

	e.logger.Debug("exa search", zap.String("query", query), zap.Int("limit", limit))

	resp, err := e.HTTPClient.Do(req)
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

	var parsed exaResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse exa response: %w", err)
	}

	results := make([]*Result, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		results = append(results, &Result{
			Title:         r.Title,
			URL:           r.URL,
			Text:          r.Text,
			PublishedDate: r.PublishedDate,
		})
	}

	return results, nil
}
