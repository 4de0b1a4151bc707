// Package research orchestrates a company research request: serve the
// stored record when it is fresh, otherwise run the Langflow workflow and
// persist the result.
package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/company-researcher/internal/astra"
	"github.com/spigell/company-researcher/internal/langflow"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// Request identifies the company to research.
type Request struct {
	CompanyName       string `json:"company_name"`
	DomainName        string `json:"domain_name"`
	ForceRefresh      bool   `json:"force_refresh"`
	DataFreshnessDays int    `json:"data_freshness_days"`
}

// Response carries the research record and its provenance flags.
type Response struct {
	CompanyData    map[string]any `json:"company_data"`
	IsCached       bool           `json:"is_cached"`
	IsMock         bool           `json:"is_mock"`
	FallbackReason string         `json:"fallback_reason,omitempty"`
}

type Service struct {
	store    *astra.Store
	langflow *langflow.Client
	logger   *zap.Logger
}

func New(logger *zap.Logger, store *astra.Store, flow *langflow.Client) *Service {
	return &Service{
		store:    store,
		langflow: flow,
		logger:   logger,
	}
}

// CompanyKey derives the storage key, e.g. "tesla - tesla.com".
func CompanyKey(companyName, domainName string) string {
	return fmt.Sprintf("%s - %s",
		strings.ToLower(strings.TrimSpace(companyName)),
		strings.ToLower(strings.TrimSpace(domainName)),
	)
}

// Research runs the full lookup-or-research path for a company.
func (s *Service) Research(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.CompanyName) == "" || strings.TrimSpace(req.DomainName) == "" {
		return nil, fmt.Errorf("company_name and domain_name are required")
	}

	key := CompanyKey(req.CompanyName, req.DomainName)

	if !req.ForceRefresh {
		existing, err := s.store.GetCompanyData(ctx, key, req.DataFreshnessDays)
		if err != nil {
			s.logger.Warn("stored data lookup failed", zap.String("company_key", key), zap.Error(err))
		}

		if existing != nil {
			s.logger.Info("returning cached data", zap.String("company_key", key))
			return &Response{CompanyData: existing, IsCached: true}, nil
		}
	}

	result, err := s.langflow.TriggerResearch(ctx, req.CompanyName, req.DomainName)
	if err != nil {
		return nil, fmt.Errorf("research flow failed: %w", err)
	}

	companyData, err := extractCompanyData(result.Response)
	if err != nil {
		return nil, fmt.Errorf("invalid response structure from research flow: %w", err)
	}

	if result.Fallback {
		s.logger.Warn("using mock data",
			zap.String("company_key", key),
			zap.String("reason", result.FallbackReason),
		)
	}

	if err := s.store.StoreCompanyData(ctx, key, companyData); err != nil {
		// Serving the data matters more than persisting it.
		s.logger.Warn("failed to store research data", zap.String("company_key", key), zap.Error(err))
	}

	return &Response{
		CompanyData:    companyData,
		IsMock:         result.Fallback,
		FallbackReason: result.FallbackReason,
	}, nil
}

// flowOutputs matches the nested Langflow "outputs" response shape.
type flowOutputs struct {
	Outputs []struct {
		Outputs struct {
			Message map[string]any `mapstructure:"message"`
		} `mapstructure:"outputs"`
	} `mapstructure:"outputs"`
}

// extractCompanyData tolerates the response shapes the workflow is known
// to produce: a nested data field, the Langflow outputs list, or a bare
// record.
func extractCompanyData(response map[string]any) (map[string]any, error) {
	if response == nil {
		return nil, fmt.Errorf("empty response")
	}

	if data, ok := response["data"].(map[string]any); ok {
		return data, nil
	}

	if _, ok := response["outputs"]; ok {
		var parsed flowOutputs
		if err := mapstructure.Decode(response, &parsed); err == nil && len(parsed.Outputs) > 0 {
			if message := parsed.Outputs[0].Outputs.Message; len(message) > 0 {
				return message, nil
			}
		}
		return nil, fmt.Errorf("outputs list carries no message payload")
	}

	if _, ok := response["metadata"]; ok {
		return response, nil
	}
	if _, ok := response["company_name"]; ok {
		return response, nil
	}

	// Unknown shape; hand the whole response to the caller rather than
	// dropping data on the floor.
	return response, nil
}
