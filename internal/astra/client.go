// Package astra is a client for the AstraDB JSON Data API used as the
// persistent store for researched company records.
package astra

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
	defaultKeyspace   = "default_keyspace"
	defaultCollection = "company"

	tokenHeader = "Token"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	Endpoint   string
	Keyspace   string
	Collection string
}

func New(logger *zap.Logger, token, endpoint string) *Client {
	return &Client{
		token:    token,
		Endpoint: endpoint,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:     logger,
		Keyspace:   defaultKeyspace,
		Collection: defaultCollection,
	}
}

// Document is a single record in the company collection. The Data API keeps
// all research payload under metadata; $vectorize holds the text the server
// embeds for vector search.
type Document struct {
	ID         string         `json:"_id,omitempty"`
	Vectorize  string         `json:"$vectorize,omitempty"`
	Similarity float64        `json:"$similarity,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type commandResponse struct {
	Data *struct {
		Documents []*Document `json:"documents"`
		Document  *Document   `json:"document"`
	} `json:"data"`
	Status map[string]json.RawMessage `json:"status"`
	Errors []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	} `json:"errors"`
}

type findOptions struct {
	Limit             int  `json:"limit,omitempty"`
	IncludeSimilarity bool `json:"includeSimilarity,omitempty"`
}

// Find runs a filtered find command. An empty filter matches every document.
func (c *Client) Find(ctx context.Context, filter map[string]any, limit int) ([]*Document, error) {
	find := map[string]any{}
	if len(filter) > 0 {
		find["filter"] = filter
	}
	if limit > 0 {
		find["options"] = &findOptions{Limit: limit}
	}

	resp, err := c.command(ctx, map[string]any{"find": find})
	if err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, nil
	}

	return resp.Data.Documents, nil
}

// FindSimilar runs a vector-sorted find, embedding the given text server-side.
func (c *Client) FindSimilar(ctx context.Context, text string, limit int) ([]*Document, error) {
	find := map[string]any{
		"sort":    map[string]any{"$vectorize": text},
		"options": &findOptions{Limit: limit, IncludeSimilarity: true},
	}

	resp, err := c.command(ctx, map[string]any{"find": find})
	if err != nil {
		return nil, err
	}

	if resp.Data == nil {
		return nil, nil
	}

	return resp.Data.Documents, nil
}

func (c *Client) InsertOne(ctx context.Context, doc *Document) (string, error) {
	resp, err := c.command(ctx, map[string]any{
		"insertOne": map[string]any{"document": doc},
	})
	if err != nil {
		return "", err
	}

	var ids []string
	if raw, ok := resp.Status["insertedIds"]; ok {
		if err := json.Unmarshal(raw, &ids); err != nil {
			return "", fmt.Errorf("parse insertedIds: %w", err)
		}
	}

	if len(ids) == 0 {
		return "", fmt.Errorf("insert returned no document id")
	}

	return ids[0], nil
}

func (c *Client) DeleteMany(ctx context.Context, filter map[string]any) (int, error) {
	resp, err := c.command(ctx, map[string]any{
		"deleteMany": map[string]any{"filter": filter},
	})
	if err != nil {
		return 0, err
	}

	var count int
	if raw, ok := resp.Status["deletedCount"]; ok {
		if err := json.Unmarshal(raw, &count); err != nil {
			return 0, fmt.Errorf("parse deletedCount: %w", err)
		}
	}

	return count, nil
}

func (c *Client) EstimatedCount(ctx context.Context) (int, error) {
	resp, err := c.command(ctx, map[string]any{
		"estimatedDocumentCount": map[string]any{},
	})
	if err != nil {
		return 0, err
	}

	var count int
	if raw, ok := resp.Status["count"]; ok {
		if err := json.Unmarshal(raw, &count); err != nil {
			return 0, fmt.Errorf("parse count: %w", err)
		}
	}

	return count, nil
}

func (c *Client) command(ctx context.Context, payload map[string]any) (*commandResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal command: %w", err)
	}

	url := fmt.Sprintf("%s/api/json/v1/%s/%s", c.Endpoint, c.Keyspace, c.Collection)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	c.logger.Debug("astra command", zap.String("url", url), zap.Int("payload_bytes", len(body)))

	resp, err := c.HTTPClient.Do(req)
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

	var parsed commandResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse data api response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("data api error %s: %s", parsed.Errors[0].ErrorCode, parsed.Errors[0].Message)
	}

	return &parsed, nil
}
