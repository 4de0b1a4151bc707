// Package lookalike discovers companies similar to a stored research
// record by querying web search providers and scoring the candidates
// against the source company's profile.
package lookalike

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/company-researcher/internal/astra"
	"github.com/spigell/company-researcher/internal/enrich"
	"github.com/spigell/company-researcher/internal/websearch"

	"go.uber.org/zap"
)

const (
	defaultLimit = 10
	maxLimit     = 25
	// Only the strongest candidates are worth a financial enrichment pass.
	enrichTop = 5
)

// Request identifies the source company and how many candidates to return.
type Request struct {
	CompanyName string `json:"company_name"`
	DomainName  string `json:"domain_name"`
	Limit       int    `json:"limit"`
}

// Candidate is a single lookalike company.
type Candidate struct {
	Name       string             `json:"name"`
	Title      string             `json:"title"`
	URL        string             `json:"url"`
	Snippet    string             `json:"snippet,omitempty"`
	Similarity float64            `json:"similarity_score"`
	MatchedOn  []string           `json:"matched_on,omitempty"`
	Financials *enrich.Financials `json:"financials,omitempty"`
}

// Response carries the ranked candidates plus the profile they were
// compared against and the patterns observed across the result set.
type Response struct {
	SourceCompany   string          `json:"source_company"`
	Characteristics Characteristics `json:"characteristics"`
	Candidates      []*Candidate    `json:"lookalikes"`
	Patterns        Patterns        `json:"patterns"`
	Providers       []string        `json:"providers_used"`
}

type Finder struct {
	store     *astra.Store
	searchers []websearch.Searcher
	enricher  *enrich.Enricher
	logger    *zap.Logger
}

func New(logger *zap.Logger, store *astra.Store, enricher *enrich.Enricher, searchers ...websearch.Searcher) *Finder {
	return &Finder{
		store:     store,
		searchers: searchers,
		enricher:  enricher,
		logger:    logger,
	}
}

// Find returns companies similar to the one named in the request. The
// company must already have a stored research record.
func (f *Finder) Find(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.CompanyName) == "" {
		return nil, fmt.Errorf("company_name is required")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	key := fmt.Sprintf("%s - %s",
		strings.ToLower(strings.TrimSpace(req.CompanyName)),
		strings.ToLower(strings.TrimSpace(req.DomainName)),
	)

	record, err := f.store.GetCompanyData(ctx, key, 0)
	if err != nil {
		return nil, fmt.Errorf("source company lookup failed: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("no stored research data for %q, research it first", req.CompanyName)
	}

	chars := ExtractCharacteristics(record)
	f.logger.Debug("extracted source characteristics",
		zap.String("company", req.CompanyName),
		zap.String("industry", chars.Industry),
		zap.Strings("tech_keywords", chars.TechKeywords),
	)

	results, providers := f.search(ctx, req.CompanyName, chars, limit)

	candidates := f.rank(req.CompanyName, chars, results, limit)
	for i, c := range candidates {
		if i >= enrichTop {
			break
		}
		fin := f.enricher.Enrich(c.Name, c.Snippet)
		c.Financials = &fin
	}

	return &Response{
		SourceCompany:   req.CompanyName,
		Characteristics: chars,
		Candidates:      candidates,
		Patterns:        analyzePatterns(candidates),
		Providers:       providers,
	}, nil
}

func (f *Finder) search(ctx context.Context, companyName string, chars Characteristics, limit int) ([]*websearch.Result, []string) {
	var (
		results   []*websearch.Result
		providers []string
	)

	// Each provider contributes half of the requested pool.
	perProvider := limit / 2
	if perProvider < 1 {
		perProvider = 1
	}

	for _, searcher := range f.searchers {
		if !searcher.IsEnabled() {
			f.logger.Debug("search provider disabled", zap.String("provider", searcher.Name()))
			continue
		}

		query := buildQuery(searcher.Name(), companyName, chars)
		hits, err := searcher.Search(ctx, query, perProvider)
		if err != nil {
			f.logger.Warn("search provider failed",
				zap.String("provider", searcher.Name()),
				zap.Error(err),
			)
			continue
		}

		results = append(results, hits...)
		providers = append(providers, searcher.Name())
	}

	return results, providers
}

// rank turns raw search hits into scored, deduplicated candidates.
func (f *Finder) rank(sourceName string, chars Characteristics, results []*websearch.Result, limit int) []*Candidate {
	sourceLower := strings.ToLower(strings.TrimSpace(sourceName))
	seen := make(map[string]*Candidate)

	for _, hit := range results {
		name := extractCompanyName(hit.Title)
		if name == "" {
			continue
		}

		nameLower := strings.ToLower(name)
		if nameLower == sourceLower {
			continue
		}

		score, matched := similarityScore(chars, hit)
		existing, ok := seen[nameLower]
		if ok && existing.Similarity >= score {
			continue
		}
		seen[nameLower] = &Candidate{
			Name:       name,
			Title:      hit.Title,
			URL:        hit.URL,
			Snippet:    snippet(hit.Text),
			Similarity: score,
			MatchedOn:  matched,
		}
	}

	candidates := make([]*Candidate, 0, len(seen))
	for _, c := range seen {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].Name < candidates[j].Name
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates
}

func snippet(text string) string {
	const max = 300
	if len(text) <= max {
		return text
	}
	return text[:max]
}
