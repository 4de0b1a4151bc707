// Package websearch provides the web search providers used to discover
// lookalike company candidates.
package websearch

import "context"

// Result is a single search hit from any provider.
type Result struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Text          string `json:"text"`
	PublishedDate string `json:"published_date"`
}

// Searcher runs a web search. Providers with no configured API key report
// themselves as disabled and are skipped instead of failing the search.
type Searcher interface {
	Name() string
	IsEnabled() bool
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
}
