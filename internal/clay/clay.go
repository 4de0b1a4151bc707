// Package clay monitors company changes (news, jobs, funding, tech stack)
// through the Clay enrichment API.
package clay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const apiURL = "https://api.clay.com/v1"

const defaultLimit = 10

type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(logger *zap.Logger, apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger,
	}
}

// NewsItem is a single company news event.
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

// JobPosting is an open position at the monitored company.
type JobPosting struct {
	Title    string `json:"title"`
	Location string `json:"location"`
	URL      string `json:"url"`
	PostedAt string `json:"posted_at"`
}

// FundingEvent is a funding round reported for the company.
type FundingEvent struct {
	Round       string   `json:"round"`
	Amount      string   `json:"amount"`
	AnnouncedAt string   `json:"announced_at"`
	Investors   []string `json:"investors"`
}

// Snapshot aggregates everything Clay reports for a domain.
type Snapshot struct {
	Domain    string          `json:"domain"`
	News      []*NewsItem     `json:"news"`
	Jobs      []*JobPosting   `json:"jobs"`
	Funding   []*FundingEvent `json:"funding"`
	TechStack []string        `json:"tech_stack"`
}

// GetNews returns recent company news. A 404 means Clay knows nothing
// about the domain, which is an empty result, not an error.
func (c *Client) GetNews(ctx context.Context, domain string) ([]*NewsItem, error) {
	var parsed struct {
		News []*NewsItem `json:"news"`
	}

	found, err := c.get(ctx, "/companies/news", domain, &parsed)
	if err != nil || !found {
		return nil, err
	}

	return parsed.News, nil
}

func (c *Client) GetJobs(ctx context.Context, domain string) ([]*JobPosting, error) {
	var parsed struct {
		Jobs []*JobPosting `json:"jobs"`
	}

	found, err := c.get(ctx, "/companies/jobs", domain, &parsed)
	if err != nil || !found {
		return nil, err
	}

	return parsed.Jobs, nil
}

func (c *Client) GetFunding(ctx context.Context, domain string) ([]*FundingEvent, error) {
	var parsed struct {
		Funding []*FundingEvent `json:"funding"`
	}

	found, err := c.get(ctx, "/companies/funding", domain, &parsed)
	if err != nil || !found {
		return nil, err
	}

	return parsed.Funding, nil
}

func (c *Client) GetTechStack(ctx context.Context, domain string) ([]string, error) {
	var parsed struct {
		Technologies []string `json:"technologies"`
	}

	found, err := c.get(ctx, "/companies/tech", domain, &parsed)
	if err != nil || !found {
		return nil, err
	}

	return parsed.Technologies, nil
}

// GetSnapshot collects all monitored signals for a domain. Individual
// signal failures are logged and leave that section empty.
func (c *Client) GetSnapshot(ctx context.Context, domain string) (*Snapshot, error) {
	snapshot := &Snapshot{Domain: domain}

	var err error
	if snapshot.News, err = c.GetNews(ctx, domain); err != nil {
		c.logger.Warn("clay news fetch failed", zap.String("domain", domain), zap.Error(err))
	}
	if snapshot.Jobs, err = c.GetJobs(ctx, domain); err != nil {
		c.logger.Warn("clay jobs fetch failed", zap.String("domain", domain), zap.Error(err))
	}
	if snapshot.Funding, err = c.GetFunding(ctx, domain); err != nil {
		c.logger.Warn("clay funding fetch failed", zap.String("domain", domain), zap.Error(err))
	}
	if snapshot.TechStack, err = c.GetTechStack(ctx, domain); err != nil {
		c.logger.Warn("clay tech stack fetch failed", zap.String("domain", domain), zap.Error(err))
	}

	return snapshot, nil
}

func (c *Client) get(ctx context.Context, path, domain string, target any) (bool, error) {
	q := url.Values{}
	q.Set("domain", domain)
	q.Set("limit", fmt.Sprintf("%d", defaultLimit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+path, nil)
	if err != nil {
		return false, err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = q.Encode()

	c.logger.Debug("clay request", zap.String("path", path), zap.String("domain", domain))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("clay has no data for domain",
			zap.String("path", path),
			zap.String("domain", domain),
		)
		return false, nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, err
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("bad status: %s", resp.Status)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("parse clay response: %w", err)
	}

	return true, nil
}
