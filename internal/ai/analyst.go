package ai

import (
	"context"

	"github.com/spigell/company-researcher/internal/sentiment"
)

// Assessment is the AI analyst's judgement on a single news source.
type Assessment struct {
	Sentiment  string
	Score      float64
	Confidence float64
	KeyPhrases []string
	Reasoning  string
	Raw        string
}

// Analyst analyzes news sources and summarizes research records with an
// LLM. The lexicon analyzer in internal/sentiment is the fallback when no
// analyst is configured.
type Analyst interface {
	Analyze(ctx context.Context, source *sentiment.Source) (*Assessment, error)
	Summarize(ctx context.Context, companyKey string, record map[string]any) (string, error)
}

// AnalyzeSources scores each source with the analyst and aggregates the
// results. Sources the analyst fails on fall back to the lexicon analyzer,
// so a flaky model degrades per source instead of failing the batch.
func AnalyzeSources(ctx context.Context, analyst Analyst, lexicon *sentiment.Analyzer, sources []*sentiment.Source) *sentiment.Analysis {
	results := make([]*sentiment.SourceSentiment, 0, len(sources))

	for i, source := range sources {
		assessment, err := analyst.Analyze(ctx, source)
		if err != nil {
			results = append(results, lexicon.AnalyzeSource(source, i+1))
			continue
		}

		results = append(results, &sentiment.SourceSentiment{
			SourceIndex: i + 1,
			Title:       source.Title,
			Sentiment:   assessment.Sentiment,
			Score:       assessment.Score,
			Confidence:  assessment.Confidence,
			KeyPhrases:  assessment.KeyPhrases,
			Reasoning:   assessment.Reasoning,
		})
	}

	return sentiment.Aggregate(results)
}
