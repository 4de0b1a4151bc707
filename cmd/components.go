package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/ai/gemini"
	"github.com/spigell/company-researcher/internal/astra"
	"github.com/spigell/company-researcher/internal/enrich"
	"github.com/spigell/company-researcher/internal/langflow"
	"github.com/spigell/company-researcher/internal/lookalike"
	"github.com/spigell/company-researcher/internal/research"
	"github.com/spigell/company-researcher/internal/secrets"
	"github.com/spigell/company-researcher/internal/sentiment"
	"github.com/spigell/company-researcher/internal/websearch"

	"go.uber.org/zap"
)

// components are the service objects shared by the serve and research
// commands.
type components struct {
	store     *astra.Store
	flow      *langflow.Client
	research  *research.Service
	lookalike *lookalike.Finder
	sentiment *sentiment.Analyzer
	analyst   ai.Analyst
}

func buildComponents(ctx context.Context, config *Config, logger *zap.Logger) (*components, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Astra == nil || config.Astra.Endpoint == "" {
		return nil, errors.New("astra.endpoint is required")
	}
	if config.Langflow == nil || config.Langflow.URL == "" {
		return nil, errors.New("langflow.url is required")
	}

	astraToken, err := secrets.Load(secrets.Source{
		Name: "astra token",
		File: config.Astra.TokenFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading astra token: %w", err)
	}

	client := astra.New(logger, astraToken, config.Astra.Endpoint)
	if config.Astra.Keyspace != "" {
		client.Keyspace = config.Astra.Keyspace
	}
	if config.Astra.Collection != "" {
		client.Collection = config.Astra.Collection
	}
	store := astra.NewStore(client, logger)

	flowKey, err := secrets.LoadOptional(secrets.Source{
		Name: "langflow api key",
		File: config.Langflow.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading langflow api key: %w", err)
	}

	flow := langflow.New(logger, flowKey, config.Langflow.URL)
	flow.UseFallback = !config.Langflow.NoFallback

	if config.Langflow.TestOnStart {
		if err := flow.TestConnection(ctx); err != nil {
			logger.Warn("langflow connection test failed", zap.Error(err))
		}
	}

	searchers, err := buildSearchers(config, logger)
	if err != nil {
		return nil, err
	}

	enricher := enrich.New(logger)

	c := &components{
		store:     store,
		flow:      flow,
		research:  research.New(logger, store, flow),
		lookalike: lookalike.New(logger, store, enricher, searchers...),
		sentiment: sentiment.New(logger),
	}

	if config.AI != nil && config.AI.Enabled {
		analyst, err := buildAnalyst(ctx, config.AI, logger)
		if err != nil {
			return nil, err
		}
		c.analyst = analyst
	}

	return c, nil
}

// buildSearchers wires the configured web search providers. A provider
// with no key stays registered but disabled.
func buildSearchers(config *Config, logger *zap.Logger) ([]websearch.Searcher, error) {
	var exaKey, tavilyKey string

	if config.Search != nil {
		var err error
		exaKey, err = secrets.LoadOptional(secrets.Source{
			Name: "exa api key",
			File: config.Search.ExaKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("loading exa api key: %w", err)
		}

		tavilyKey, err = secrets.LoadOptional(secrets.Source{
			Name: "tavily api key",
			File: config.Search.TavilyKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("loading tavily api key: %w", err)
		}
	}

	return []websearch.Searcher{
		websearch.NewExa(logger, exaKey),
		websearch.NewTavily(logger, tavilyKey),
	}, nil
}

func buildAnalyst(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Analyst, error) {
	if cfg.Gemini == nil {
		return nil, errors.New("ai.gemini section is required when ai is enabled")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("loading gemini api key: %w", err)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return gemini.NewAnalyst(generator, logger, cfg.MinConfidence, cfg.Gemini.MaxLogLength), nil
}

// recordSources converts a research record's news items into sentiment
// sources. Records without news fall back to the description text.
func recordSources(companyName string, record map[string]any) []*sentiment.Source {
	var sources []*sentiment.Source

	if news, ok := record["news"].([]any); ok {
		for _, item := range news {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			sources = append(sources, &sentiment.Source{
				Title:   stringValue(entry, "title"),
				URL:     stringValue(entry, "url"),
				Snippet: stringValue(entry, "snippet", "summary", "text"),
			})
		}
	}

	if len(sources) == 0 {
		if desc := stringValue(record, "description", "summary"); desc != "" {
			sources = append(sources, &sentiment.Source{
				Title:   companyName,
				Snippet: desc,
			})
		}
	}

	return sources
}

func stringValue(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
