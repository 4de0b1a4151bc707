// Package hubspot is a minimal HubSpot CRM v3 objects client. It is
// consumed by the scheduler sync task and entity scoring, not exposed as
// passthrough endpoints.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL = "https://api.hubapi.com"

	companiesPath = "/crm/v3/objects/companies"
	contactsPath  = "/crm/v3/objects/contacts"
)

// Company property names this application reads and writes.
var companyProperties = []string{
	"name", "domain", "industry", "numberofemployees",
	"annualrevenue", "description", "city", "state",
}

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func New(logger *zap.Logger, token string) *Client {
	return &Client{
		token:  token,
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Object is a CRM object with its requested properties.
type Object struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	CreatedAt  string            `json:"createdAt"`
	UpdatedAt  string            `json:"updatedAt"`
}

type searchResponse struct {
	Total   int       `json:"total"`
	Results []*Object `json:"results"`
}

// GetCompany fetches a company by ID with the standard property set.
func (c *Client) GetCompany(ctx context.Context, id string) (*Object, error) {
	return c.getObject(ctx, companiesPath, id)
}

// GetContact fetches a contact by ID.
func (c *Client) GetContact(ctx context.Context, id string) (*Object, error) {
	return c.getObject(ctx, contactsPath, id)
}

// SearchCompanyByDomain returns the first company whose domain property
// matches, or nil when there is none.
func (c *Client) SearchCompanyByDomain(ctx context.Context, domain string) (*Object, error) {
	payload := map[string]any{
		"filterGroups": []map[string]any{{
			"filters": []map[string]any{{
				"propertyName": "domain",
				"operator":     "EQ",
				"value":        strings.ToLower(strings.TrimSpace(domain)),
			}},
		}},
		"properties": companyProperties,
		"limit":      1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal search payload: %w", err)
	}

	var parsed searchResponse
	if err := c.doJSON(ctx, http.MethodPost, companiesPath+"/search", body, &parsed); err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}

	if len(parsed.Results) == 0 {
		return nil, nil
	}

	return parsed.Results[0], nil
}

// UpdateCompany patches the given properties on a company.
func (c *Client) UpdateCompany(ctx context.Context, id string, properties map[string]string) error {
	payload := map[string]any{"properties": properties}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal update payload: %w", err)
	}

	path := fmt.Sprintf("%s/%s", companiesPath, url.PathEscape(id))
	if err := c.doJSON(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("update company %s: %w", id, err)
	}

	c.logger.Info("updated hubspot company",
		zap.String("company_id", id),
		zap.Int("properties", len(properties)),
	)

	return nil
}

func (c *Client) getObject(ctx context.Context, basePath, id string) (*Object, error) {
	path := fmt.Sprintf("%s/%s?properties=%s",
		basePath, url.PathEscape(id), strings.Join(companyProperties, ","))

	var obj Object
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &obj); err != nil {
		return nil, fmt.Errorf("get object %s: %w", id, err)
	}

	return &obj, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body []byte, target any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.APIURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", "application/json")

	c.logger.Debug("hubspot request", zap.String("method", method), zap.String("path", path))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	if target == nil {
		return nil
	}

	return json.Unmarshal(data, target)
}
