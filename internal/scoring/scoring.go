// Package scoring computes a weighted CRM fit score for a company from
// its observed signals.
package scoring

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spigell/company-researcher/internal/cache"

	"go.uber.org/zap"
)

// DefaultWeights is the shipped weight profile. Keys are signal names,
// values are shares of the final score.
var DefaultWeights = map[string]float64{
	"hiring":         0.1,
	"funding":        0.1,
	"industry_match": 0.2,
	"domain_quality": 0.15,
	"positive_news":  0.15,
	"company_size":   0.1,
	"growth_rate":    0.1,
	"tech_adoption":  0.1,
}

// Signals are the per-dimension inputs, each in [0, 1]. Missing signals
// score as zero.
type Signals map[string]float64

// Result is a scored entity.
type Result struct {
	EntityID   string             `json:"entity_id"`
	EntityType string             `json:"entity_type"`
	Score      float64            `json:"crm_score"`
	Components map[string]float64 `json:"components"`
	Signals    Signals            `json:"signals"`
}

type Scorer struct {
	mu      sync.RWMutex
	weights map[string]float64
	cache   *cache.Manager
	logger  *zap.Logger
}

func New(logger *zap.Logger, cacheManager *cache.Manager) *Scorer {
	return &Scorer{
		weights: cloneWeights(DefaultWeights),
		cache:   cacheManager,
		logger:  logger,
	}
}

// Weights returns a copy of the active weight profile.
func (s *Scorer) Weights() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneWeights(s.weights)
}

// UpdateWeights merges the given weights into the active profile. Values
// outside [0, 1] are rejected, unknown signal names are ignored with a
// warning, and the merged profile is normalized to sum to 1.
func (s *Scorer) UpdateWeights(updates map[string]float64) (map[string]float64, error) {
	for name, value := range updates {
		if value < 0 || value > 1 {
			return nil, fmt.Errorf("weight %s must be between 0 and 1, got %v", name, value)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for name, value := range updates {
		if _, known := s.weights[name]; !known {
			s.logger.Warn("ignoring unknown scoring weight", zap.String("weight", name))
			continue
		}
		s.weights[name] = value
	}

	var sum float64
	for _, value := range s.weights {
		sum += value
	}
	if sum > 0 {
		for name := range s.weights {
			s.weights[name] /= sum
		}
	}

	s.invalidateCache()
	return cloneWeights(s.weights), nil
}

// ResetWeights restores the default profile.
func (s *Scorer) ResetWeights() map[string]float64 {
	s.mu.Lock()
	s.weights = cloneWeights(DefaultWeights)
	s.mu.Unlock()

	s.invalidateCache()
	return cloneWeights(DefaultWeights)
}

// ScoreEntity computes the weighted score for an entity. Results are
// cached per entity until the weights change.
func (s *Scorer) ScoreEntity(ctx context.Context, entityID, entityType string, signals Signals) (*Result, error) {
	if entityID == "" {
		return nil, fmt.Errorf("entity_id is required")
	}
	if entityType == "" {
		entityType = "company"
	}

	for name, value := range signals {
		if value < 0 || value > 1 {
			return nil, fmt.Errorf("signal %s must be between 0 and 1, got %v", name, value)
		}
	}

	if s.cache != nil {
		var cached Result
		if found, err := s.cache.Get(cache.KindScoring, entityID, entityType, &cached); err == nil && found {
			s.logger.Debug("scoring cache hit", zap.String("entity_id", entityID))
			return &cached, nil
		}
	}

	s.mu.RLock()
	weights := cloneWeights(s.weights)
	s.mu.RUnlock()

	components := make(map[string]float64, len(weights))
	var score float64
	for _, name := range sortedKeys(weights) {
		contribution := weights[name] * signals[name]
		components[name] = contribution
		score += contribution
	}

	result := &Result{
		EntityID:   entityID,
		EntityType: entityType,
		Score:      score,
		Components: components,
		Signals:    signals,
	}

	if s.cache != nil {
		if err := s.cache.Put(cache.KindScoring, entityID, entityType, result); err != nil {
			s.logger.Warn("failed to cache score", zap.String("entity_id", entityID), zap.Error(err))
		}
	}

	return result, nil
}

func (s *Scorer) invalidateCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Clear(cache.KindScoring); err != nil {
		s.logger.Warn("failed to clear scoring cache", zap.Error(err))
	}
}

func cloneWeights(weights map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for name, value := range weights {
		out[name] = value
	}
	return out
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
