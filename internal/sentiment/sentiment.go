// Package sentiment scores company news sources with a weighted financial
// lexicon and aggregates them into an overall sentiment and growth score.
package sentiment

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Source is a news item to analyze.
type Source struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SourceSentiment is the per-source analysis result.
type SourceSentiment struct {
	SourceIndex int      `json:"source_index"`
	Title       string   `json:"title"`
	Sentiment   string   `json:"sentiment"`
	Score       float64  `json:"sentiment_score"`
	Confidence  float64  `json:"confidence"`
	KeyPhrases  []string `json:"key_phrases"`
	Reasoning   string   `json:"reasoning"`
}

// Analysis aggregates the per-source sentiments.
type Analysis struct {
	OverallSentiment string             `json:"overall_sentiment"`
	Score            float64            `json:"sentiment_score"`
	Confidence       float64            `json:"confidence"`
	Summary          string             `json:"analysis"`
	Sources          []*SourceSentiment `json:"source_sentiments"`
	TotalSources     int                `json:"total_sources"`
}

type Analyzer struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Lexicon tables. Weights are signed: negative tables carry negative values
// so the sum works without special-casing.
var strongPositive = map[string]float64{
	"record": 1.0, "breakthrough": 1.0, "exceptional": 1.0, "outstanding": 1.0,
	"surge": 0.9, "soar": 0.9, "boom": 0.9, "stellar": 0.9, "robust": 0.8,
	"accelerate": 0.8, "momentum": 0.7, "optimize": 0.7, "milestone": 0.8,
}

var positive = map[string]float64{
	"growth": 0.7, "profit": 0.6, "revenue": 0.5, "earnings": 0.6, "success": 0.7,
	"strong": 0.6, "increase": 0.5, "gain": 0.6, "beat": 0.7, "exceed": 0.7,
	"expansion": 0.6, "innovation": 0.6, "achievement": 0.6, "improve": 0.5,
	"upgrade": 0.6, "bullish": 0.8, "outperform": 0.7, "upside": 0.6,
}

var strongNegative = map[string]float64{
	"crisis": -1.0, "collapse": -1.0, "plummet": -1.0, "crash": -1.0,
	"devastating": -0.9, "alarming": -0.9, "catastrophic": -0.9, "severe": -0.8,
	"massive layoffs": -0.9, "bankruptcy": -1.0, "scandal": -0.8,
}

var negative = map[string]float64{
	"loss": -0.6, "decline": -0.6, "fall": -0.5, "drop": -0.5, "weak": -0.6,
	"concern": -0.5, "risk": -0.5, "threat": -0.6, "challenge": -0.4,
	"layoff": -0.7, "cut": -0.5, "reduce": -0.4, "struggle": -0.6,
	"warning": -0.6, "bearish": -0.8, "underperform": -0.7, "downside": -0.6,
	"volatility": -0.4, "uncertainty": -0.5, "pressure": -0.4,
}

var marketContext = map[string]float64{
	"q1": 0.1, "q2": 0.1, "q3": 0.1, "q4": 0.1,
	"annual": 0.1, "fiscal": 0.1, "guidance": 0.2,
	"analyst": 0.2, "forecast": 0.1, "outlook": 0.2,
	"sec filing": 0.3, "earnings call": 0.2, "investor": 0.2,
}

// AnalyzeSources analyzes each source and aggregates them. An empty source
// list yields a neutral result, not an error.
func (a *Analyzer) AnalyzeSources(sources []*Source) *Analysis {
	results := make([]*SourceSentiment, 0, len(sources))
	for i, source := range sources {
		results = append(results, a.AnalyzeSource(source, i+1))
	}

	analysis := Aggregate(results)

	a.logger.Debug("analyzed sources",
		zap.Int("sources", len(sources)),
		zap.Float64("average_score", analysis.Score),
		zap.String("overall", analysis.OverallSentiment),
	)
	return analysis
}

// Aggregate combines per-source sentiments into an overall analysis. The
// per-source results may come from the lexicon or from an AI analyst.
func Aggregate(results []*SourceSentiment) *Analysis {
	if len(results) == 0 {
		return &Analysis{
			OverallSentiment: "neutral",
			Summary:          "No sources available for analysis",
			Sources:          []*SourceSentiment{},
		}
	}

	total := 0.0
	for _, result := range results {
		total += result.Score
	}

	avg := total / float64(len(results))
	overall := scoreToSentiment(avg)

	return &Analysis{
		OverallSentiment: overall,
		Score:            avg,
		Confidence:       min(0.9, float64(len(results))*0.15),
		Summary:          summarize(results, overall, avg),
		Sources:          results,
		TotalSources:     len(results),
	}
}

// AnalyzeSource scores a single source with the lexicon.
func (a *Analyzer) AnalyzeSource(source *Source, index int) *SourceSentiment {
	content := strings.TrimSpace(source.Title + ". " + source.Snippet)

	title := source.Title
	if len(title) > 100 {
		title = title[:100] + "..."
	}

	if content == "." || content == "" {
		return &SourceSentiment{
			SourceIndex: index,
			Title:       title,
			Sentiment:   "neutral",
			KeyPhrases:  []string{},
			Reasoning:   "No content available for analysis",
		}
	}

	score, phrases, contextBoost := scoreText(content)

	sentiment := scoreToSentiment(score)

	baseConfidence := min(0.9, float64(len(phrases))*0.12)
	confidence := min(0.95, baseConfidence+min(0.2, contextBoost))

	if len(phrases) > 8 {
		phrases = phrases[:8]
	}

	return &SourceSentiment{
		SourceIndex: index,
		Title:       title,
		Sentiment:   sentiment,
		Score:       score,
		Confidence:  confidence,
		KeyPhrases:  phrases,
		Reasoning:   buildReasoning(sentiment, score, phrases, contextBoost),
	}
}

func scoreText(text string) (float64, []string, float64) {
	lower := strings.ToLower(text)

	score := 0.0
	phrases := make([]string, 0)
	contextBoost := 0.0

	for _, table := range []map[string]float64{strongPositive, positive} {
		for phrase, weight := range table {
			if strings.Contains(lower, phrase) {
				score += weight
				phrases = append(phrases, "+"+phrase)
			}
		}
	}

	for _, table := range []map[string]float64{strongNegative, negative} {
		for phrase, weight := range table {
			if strings.Contains(lower, phrase) {
				score += weight
				phrases = append(phrases, "-"+phrase)
			}
		}
	}

	for phrase, boost := range marketContext {
		if strings.Contains(lower, phrase) {
			contextBoost += boost
		}
	}

	if len(phrases) > 0 {
		score = score/float64(len(phrases)) + contextBoost*0.1
	}

	score = max(-1.0, min(1.0, score))

	// Map iteration order is random; keep phrase output stable for
	// callers and tests.
	sort.Strings(phrases)

	return score, phrases, contextBoost
}

func scoreToSentiment(score float64) string {
	switch {
	case score >= 0.4:
		return "very positive"
	case score >= 0.15:
		return "positive"
	case score >= -0.15:
		return "neutral"
	case score >= -0.4:
		return "negative"
	default:
		return "very negative"
	}
}

func buildReasoning(sentiment string, score float64, phrases []string, contextBoost float64) string {
	if len(phrases) == 0 {
		return "No significant sentiment indicators detected. Content appears factual or neutral."
	}

	var positives, negatives []string
	for _, p := range phrases {
		if strings.HasPrefix(p, "+") {
			positives = append(positives, p[1:])
		} else {
			negatives = append(negatives, p[1:])
		}
	}

	var b strings.Builder

	switch sentiment {
	case "very positive", "positive":
		fmt.Fprintf(&b, "Analysis indicates %s sentiment (score: %.2f). ", sentiment, score)
		if len(positives) > 0 {
			fmt.Fprintf(&b, "Strong positive indicators: %s. ", joinFirst(positives, 3))
		}
		if len(negatives) > 0 {
			fmt.Fprintf(&b, "Some concerns noted: %s, but positive signals dominate. ", joinFirst(negatives, 2))
		}
		if contextBoost > 0.1 {
			b.WriteString("Enhanced by strong market/financial context. ")
		}
	case "very negative", "negative":
		fmt.Fprintf(&b, "Analysis indicates %s sentiment (score: %.2f). ", sentiment, score)
		if len(negatives) > 0 {
			fmt.Fprintf(&b, "Key concerns: %s. ", joinFirst(negatives, 3))
		}
		if len(positives) > 0 {
			fmt.Fprintf(&b, "Some positive aspects: %s, but concerns outweigh. ", joinFirst(positives, 2))
		}
		if contextBoost > 0.1 {
			b.WriteString("Market context provides some stability. ")
		}
	default:
		fmt.Fprintf(&b, "Neutral sentiment detected (score: %.2f). ", score)
		switch {
		case len(positives) > 0 && len(negatives) > 0:
			fmt.Fprintf(&b, "Balanced indicators - positive: %s, concerns: %s. ", joinFirst(positives, 2), joinFirst(negatives, 2))
		case len(positives) > 0:
			fmt.Fprintf(&b, "Mild positive indicators: %s, but not strongly directional. ", joinFirst(positives, 2))
		case len(negatives) > 0:
			fmt.Fprintf(&b, "Some concerns: %s, but not alarming. ", joinFirst(negatives, 2))
		}
		if contextBoost > 0.1 {
			b.WriteString("Professional market context suggests measured, analytical tone. ")
		}
	}

	switch {
	case len(phrases) >= 5:
		b.WriteString("High confidence due to multiple sentiment indicators.")
	case len(phrases) >= 3:
		b.WriteString("Moderate confidence with several clear indicators.")
	default:
		b.WriteString("Lower confidence due to limited sentiment signals.")
	}

	return b.String()
}

func summarize(results []*SourceSentiment, overall string, avg float64) string {
	switch {
	case avg > 0.3:
		return fmt.Sprintf("Coverage is predominantly %s (average score %.2f across %d sources).", overall, avg, len(results))
	case avg < -0.3:
		return fmt.Sprintf("Coverage raises concerns: %s tone (average score %.2f across %d sources).", overall, avg, len(results))
	default:
		return fmt.Sprintf("Coverage is %s overall (average score %.2f across %d sources).", overall, avg, len(results))
	}
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}
