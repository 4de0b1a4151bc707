// Package langflow triggers the hosted Langflow research workflow and
// falls back to generated data when the workflow is unavailable.
package langflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spigell/company-researcher/internal/utils"

	"go.uber.org/zap"
)

const (
	// Research flows routinely take tens of seconds; keep the request
	// timeout generous and the retry count small so unknown companies
	// fail fast.
	requestTimeout = 60 * time.Second
	maxRetries     = 2
	baseRetryDelay = 10 * time.Second
)

type Client struct {
	apiKey     string
	flowURL    string
	logger     *zap.Logger
	HTTPClient *http.Client

	// UseFallback enables generated mock data when the flow cannot be
	// reached. The result is always flagged so callers can surface it.
	UseFallback bool
}

func New(logger *zap.Logger, apiKey, flowURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		flowURL: flowURL,
		HTTPClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger:      logger,
		UseFallback: true,
	}
}

// Result is the outcome of a flow trigger. When Fallback is set the
// Response carries generated data and FallbackReason says why.
type Result struct {
	Response       map[string]any `json:"response"`
	StatusCode     int            `json:"status_code"`
	Fallback       bool           `json:"fallback"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

type flowRequest struct {
	OutputType string                       `json:"output_type"`
	InputType  string                       `json:"input_type"`
	InputValue string                       `json:"input_value"`
	Tweaks     map[string]map[string]string `json:"tweaks,omitempty"`
}

// TriggerResearch runs the company research flow. Timeouts, HTTP 5xx and
// 429 are retried with a doubling delay before the fallback kicks in.
func (c *Client) TriggerResearch(ctx context.Context, companyName, domainName string) (*Result, error) {
	payload := &flowRequest{
		OutputType: "text",
		InputType:  "text",
		InputValue: companyName,
		Tweaks: map[string]map[string]string{
			"CompanyResearch-company_name": {"company_name": companyName},
			"CompanyResearch-domain_name":  {"domain_name": domainName},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal flow payload: %w", err)
	}

	c.logger.Info("triggering langflow research",
		zap.String("company_name", companyName),
		zap.String("domain_name", domainName),
	)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseRetryDelay * time.Duration(1<<(attempt-1))
			c.logger.Warn("retrying langflow request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := utils.WaitFor(ctx, delay); err != nil {
				return nil, err
			}
		}

		result, retryable, err := c.trigger(ctx, body)
		if err == nil {
			c.logger.Info("langflow research triggered", zap.String("company_name", companyName))
			return result, nil
		}

		lastErr = err
		if !retryable {
			break
		}
	}

	if c.UseFallback {
		reason := "error"
		if isTimeout(lastErr) {
			reason = "timeout"
		}

		c.logger.Warn("langflow unavailable, generating fallback data",
			zap.String("company_name", companyName),
			zap.String("reason", reason),
			zap.Error(lastErr),
		)

		return fallbackResult(companyName, domainName, reason), nil
	}

	return nil, fmt.Errorf("trigger research flow: %w", lastErr)
}

// TestConnection sends a lightweight probe to the flow endpoint.
func (c *Client) TestConnection(ctx context.Context) error {
	payload := &flowRequest{
		OutputType: "text",
		InputType:  "text",
		InputValue: "test connection",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal test payload: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err = c.trigger(probeCtx, body)
	return err
}

// trigger performs one request. The second return value reports whether
// the failure is worth retrying.
func (c *Client) trigger(ctx context.Context, body []byte) (*Result, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.flowURL, bytes.NewReader(body))
	if err != nil {
		return nil, false, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Network errors and timeouts may be transient.
		return nil, true, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, err
	}

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= http.StatusInternalServerError ||
			resp.StatusCode == http.StatusTooManyRequests
		return nil, retryable, fmt.Errorf("bad status: %s", resp.Status)
	}

	var response map[string]any
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false, fmt.Errorf("parse flow response: %w", err)
	}

	return &Result{Response: response, StatusCode: resp.StatusCode}, false, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return errors.Is(err, context.DeadlineExceeded)
}
