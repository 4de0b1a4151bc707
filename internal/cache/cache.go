// Package cache provides the named in-process TTL caches used for HubSpot
// entities, scoring results and generated prompts.
package cache

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

// Cache kinds. Each kind is a separate bigcache instance with its own TTL.
const (
	KindHubspot = "hubspot"
	KindScoring = "scoring"
	KindPrompt  = "prompt"
)

// Config holds per-kind TTLs and sizing.
type Config struct {
	HubspotTTL     time.Duration `mapstructure:"hubspot-ttl"`
	HubspotEntries int           `mapstructure:"hubspot-entries"`
	ScoringTTL     time.Duration `mapstructure:"scoring-ttl"`
	ScoringEntries int           `mapstructure:"scoring-entries"`
	PromptTTL      time.Duration `mapstructure:"prompt-ttl"`
	PromptEntries  int           `mapstructure:"prompt-entries"`
}

// DefaultConfig mirrors the production TTLs: an hour for HubSpot entities
// and prompts, a day for scoring results.
func DefaultConfig() *Config {
	return &Config{
		HubspotTTL:     time.Hour,
		HubspotEntries: 1000,
		ScoringTTL:     24 * time.Hour,
		ScoringEntries: 5000,
		PromptTTL:      time.Hour,
		PromptEntries:  1000,
	}
}

// Stats describes one cache kind.
type Stats struct {
	Size    int           `json:"size"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	MaxSize int           `json:"maxsize"`
	TTL     time.Duration `json:"ttl"`
}

type namedCache struct {
	cache   *bigcache.BigCache
	maxSize int
	ttl     time.Duration
}

// Manager owns the named caches.
type Manager struct {
	caches map[string]*namedCache
	logger *zap.Logger
}

func NewManager(cfg *Config, logger *zap.Logger) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Manager{
		caches: make(map[string]*namedCache, 3),
		logger: logger,
	}

	kinds := []struct {
		name    string
		ttl     time.Duration
		entries int
	}{
		{KindHubspot, cfg.HubspotTTL, cfg.HubspotEntries},
		{KindScoring, cfg.ScoringTTL, cfg.ScoringEntries},
		{KindPrompt, cfg.PromptTTL, cfg.PromptEntries},
	}

	for _, kind := range kinds {
		bcConfig := bigcache.DefaultConfig(kind.ttl)
		bcConfig.MaxEntriesInWindow = kind.entries
		bcConfig.CleanWindow = time.Minute
		bcConfig.Verbose = false

		bc, err := bigcache.New(context.Background(), bcConfig)
		if err != nil {
			return nil, fmt.Errorf("create %s cache: %w", kind.name, err)
		}

		m.caches[kind.name] = &namedCache{cache: bc, maxSize: kind.entries, ttl: kind.ttl}
	}

	return m, nil
}

// Key derives a deterministic cache key from the entity identity. The key
// hashes only stable fields so repeated lookups actually hit.
func Key(kind, entityID, entityType string) string {
	payload, _ := json.Marshal(struct {
		EntityID   string `json:"entity_id"`
		EntityType string `json:"entity_type"`
		Kind       string `json:"type"`
	}{entityID, entityType, kind})

	return fmt.Sprintf("%x", md5.Sum(payload))
}

// Put stores a JSON-encoded value in the given cache kind.
func (m *Manager) Put(kind, entityID, entityType string, value any) error {
	named, ok := m.caches[kind]
	if !ok {
		return fmt.Errorf("unknown cache kind: %s", kind)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	return named.cache.Set(Key(kind, entityID, entityType), data)
}

// Get loads a value into target, reporting whether it was present.
func (m *Manager) Get(kind, entityID, entityType string, target any) (bool, error) {
	named, ok := m.caches[kind]
	if !ok {
		return false, fmt.Errorf("unknown cache kind: %s", kind)
	}

	data, err := named.cache.Get(Key(kind, entityID, entityType))
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal(data, target); err != nil {
		return false, fmt.Errorf("unmarshal cache value: %w", err)
	}

	return true, nil
}

// Clear resets one cache kind, or all of them when kind is empty.
func (m *Manager) Clear(kind string) error {
	if kind == "" {
		for name, named := range m.caches {
			if err := named.cache.Reset(); err != nil {
				return fmt.Errorf("reset %s cache: %w", name, err)
			}
		}
		m.logger.Info("cleared all caches")
		return nil
	}

	named, ok := m.caches[kind]
	if !ok {
		return fmt.Errorf("unknown cache kind: %s", kind)
	}

	m.logger.Info("cleared cache", zap.String("kind", kind))
	return named.cache.Reset()
}

// Stats reports size and hit counters per cache kind.
func (m *Manager) Stats() map[string]Stats {
	stats := make(map[string]Stats, len(m.caches))
	for name, named := range m.caches {
		bcStats := named.cache.Stats()
		stats[name] = Stats{
			Size:    named.cache.Len(),
			Hits:    bcStats.Hits,
			Misses:  bcStats.Misses,
			MaxSize: named.maxSize,
			TTL:     named.ttl,
		}
	}

	return stats
}

func (m *Manager) Close() error {
	for name, named := range m.caches {
		if err := named.cache.Close(); err != nil {
			return fmt.Errorf("close %s cache: %w", name, err)
		}
	}

	return nil
}
