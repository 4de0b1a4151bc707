package astra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultFreshnessDays is how long a stored record is served before a
	// re-research is forced.
	DefaultFreshnessDays = 360

	dataSource = "langflow_api"
)

// Store provides company-level operations on top of the Data API client.
type Store struct {
	client *Client
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(client *Client, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// SimilarCompany is a single vector search hit.
type SimilarCompany struct {
	CompanyName string  `json:"company_name"`
	Industry    string  `json:"industry"`
	Revenue     string  `json:"revenue"`
	Similarity  float64 `json:"similarity_score"`
}

// Stats describes the state of the company collection.
type Stats struct {
	DocumentCount int    `json:"document_count"`
	Collection    string `json:"collection_name"`
	Status        string `json:"status"`
}

// GetCompanyData returns the stored record for the company key when one
// exists and is younger than freshnessDays. Stale records are treated as
// absent so a fresh research gets triggered.
func (s *Store) GetCompanyData(ctx context.Context, companyKey string, freshnessDays int) (map[string]any, error) {
	if freshnessDays <= 0 {
		freshnessDays = DefaultFreshnessDays
	}
	threshold := s.now().AddDate(0, 0, -freshnessDays)

	for i, filter := range searchFilters(companyKey) {
		docs, err := s.client.Find(ctx, filter, 20)
		if err != nil {
			s.logger.Warn("company lookup strategy failed",
				zap.Int("strategy", i+1),
				zap.Error(err),
			)
			continue
		}

		if len(docs) == 0 {
			continue
		}

		best := s.selectBestDocument(docs, companyKey)

		if !s.isFresh(best, threshold) {
			s.logger.Info("found stale data", zap.String("company_key", companyKey))
			return nil, nil
		}

		s.logger.Info("found fresh data", zap.String("company_key", companyKey))
		return best.Metadata, nil
	}

	s.logger.Info("no data found", zap.String("company_key", companyKey))
	return nil, nil
}

// StoreCompanyData persists a research record under the company key.
func (s *Store) StoreCompanyData(ctx context.Context, companyKey string, record map[string]any) error {
	metadata := make(map[string]any, len(record)+3)
	for k, v := range record {
		metadata[k] = v
	}
	metadata["company_name"] = companyKey
	metadata["timestamp"] = s.now().Format(time.RFC3339)
	metadata["data_source"] = dataSource

	doc := &Document{
		ID:        uuid.NewString(),
		Vectorize: companyKey,
		Metadata:  metadata,
	}

	if _, err := s.client.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("store company data: %w", err)
	}

	s.logger.Info("stored company data", zap.String("company_key", companyKey))
	return nil
}

// SearchSimilar returns companies close to the given name in vector space.
func (s *Store) SearchSimilar(ctx context.Context, companyName string, limit int) ([]*SimilarCompany, error) {
	if limit <= 0 {
		limit = 10
	}

	docs, err := s.client.FindSimilar(ctx, companyName, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]*SimilarCompany, 0, len(docs))
	for _, doc := range docs {
		results = append(results, &SimilarCompany{
			CompanyName: metadataString(doc.Metadata, "company_name"),
			Industry:    metadataString(doc.Metadata, "industry"),
			Revenue:     metadataString(doc.Metadata, "revenue"),
			Similarity:  doc.Similarity,
		})
	}

	return results, nil
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.client.EstimatedCount(ctx)
	if err != nil {
		return &Stats{Collection: s.client.Collection, Status: "error"}, err
	}

	return &Stats{
		DocumentCount: count,
		Collection:    s.client.Collection,
		Status:        "connected",
	}, nil
}

func (s *Store) DeleteCompanyData(ctx context.Context, companyKey string) (int, error) {
	deleted, err := s.client.DeleteMany(ctx, map[string]any{"metadata.company_name": companyKey})
	if err != nil {
		return 0, fmt.Errorf("delete company data: %w", err)
	}

	if deleted == 0 {
		s.logger.Warn("no documents found to delete", zap.String("company_key", companyKey))
	}

	return deleted, nil
}

// searchFilters builds the lookup strategies in priority order: exact key,
// case variants, domain only, and bare company name for keys like
// "tesla - tesla.com".
func searchFilters(companyKey string) []map[string]any {
	filters := []map[string]any{
		{"metadata.company_name": companyKey},
		{"metadata.company_name": titleCase(companyKey)},
		{"metadata.company_name": strings.ToLower(companyKey)},
		{"metadata.company_name": strings.ToUpper(companyKey)},
	}

	if name, domain, ok := strings.Cut(companyKey, " - "); ok {
		name = strings.TrimSpace(name)
		filters = append(filters,
			map[string]any{"metadata.domain_name": strings.TrimSpace(domain)},
			map[string]any{"metadata.company_name": name},
			map[string]any{"metadata.company_name": titleCase(name)},
			map[string]any{"metadata.company_name": strings.ToLower(name)},
			map[string]any{"metadata.company_name": strings.ToUpper(name)},
		)
	} else {
		filters = append(filters, map[string]any{"metadata.domain_name": companyKey})
	}

	return filters
}

// selectBestDocument picks one record out of several matches: exact name
// match dominates, then recency, then how much usable data the record
// carries.
func (s *Store) selectBestDocument(docs []*Document, companyKey string) *Document {
	if len(docs) == 1 {
		return docs[0]
	}

	best := docs[0]
	bestScore := -1.0

	for _, doc := range docs {
		score := 0.0

		if strings.EqualFold(metadataString(doc.Metadata, "company_name"), companyKey) {
			score += 100
		}

		if ts := metadataString(doc.Metadata, "timestamp"); ts != "" {
			if parsed, ok := parseTimestamp(ts); ok {
				hoursOld := s.now().Sub(parsed).Hours()
				if recency := 50 - hoursOld; recency > 0 {
					score += recency
				}
			}
		}

		score += richnessScore(doc.Metadata)

		if score > bestScore {
			bestScore = score
			best = doc
		}
	}

	s.logger.Debug("selected best document",
		zap.String("company_key", companyKey),
		zap.Int("candidates", len(docs)),
		zap.Float64("score", bestScore),
	)

	return best
}

// richnessScore awards up to 30 points for populated financial fields,
// hiring fields and attached sources.
func richnessScore(metadata map[string]any) float64 {
	score := 0.0

	if financial, ok := metadata["financial_data"].(map[string]any); ok {
		populated := 0
		for _, v := range financial {
			if str, ok := v.(string); ok && str != "" && str != "Not found" && str != "$0" {
				populated++
			}
		}
		score += min(10, float64(populated))
	}

	if hiring, ok := metadata["hiring_data"].(map[string]any); ok {
		populated := 0
		for _, v := range hiring {
			if str, ok := v.(string); ok && str != "" && str != "Not found" {
				populated++
			}
		}
		score += min(5, float64(populated))
	}

	if sources, ok := metadata["sources"].([]any); ok {
		score += min(15, float64(len(sources)*3))
	}

	return score
}

func (s *Store) isFresh(doc *Document, threshold time.Time) bool {
	ts := metadataString(doc.Metadata, "timestamp")
	if ts == "" {
		// Legacy records have no timestamp; serve them rather than
		// re-research on every request.
		return true
	}

	parsed, ok := parseTimestamp(ts)
	if !ok {
		s.logger.Warn("unparseable timestamp in stored record", zap.String("timestamp", ts))
		return false
	}

	return parsed.After(threshold)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}
