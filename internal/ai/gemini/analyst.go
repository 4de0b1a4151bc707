package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/sentiment"
	"github.com/spigell/company-researcher/internal/utils"

	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Analyst evaluates news sources and summarizes research records through
// the Gemini generator.
type Analyst struct {
	generator     contentGenerator
	minConfidence float64
	logger        *zap.Logger
	maxLogLen     int
}

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewAnalyst(generator contentGenerator, logger *zap.Logger, minConfidence float64, maxLogLength int) *Analyst {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Analyst{
		generator:     generator,
		minConfidence: minConfidence,
		logger:        logger,
		maxLogLen:     maxLogLength,
	}
}

// Analyze sends a single source to Gemini and parses the structured
// verdict. Responses below the configured confidence threshold fall back
// to a neutral assessment.
func (a *Analyst) Analyze(ctx context.Context, source *sentiment.Source) (*ai.Assessment, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}

	sourceJSON, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal source payload: %w", err)
	}

	prompt := buildPrompt(string(sourceJSON))

	a.logger.Debug("gemini analyze request",
		zap.String("source_url", source.URL),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("gemini analyze response",
		zap.String("source_url", source.URL),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	assessment, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}

	if a.minConfidence > 0 && assessment.Confidence < a.minConfidence {
		a.logger.Debug("downgrading assessment to neutral by confidence threshold",
			zap.Float64("confidence", assessment.Confidence),
			zap.Float64("threshold", a.minConfidence),
		)
		assessment.Sentiment = "neutral"
		assessment.Score = 0
	}

	assessment.Raw = raw
	return assessment, nil
}

// Summarize asks Gemini for a short analyst brief over a research record.
func (a *Analyst) Summarize(ctx context.Context, companyKey string, record map[string]any) (string, error) {
	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal research record: %w", err)
	}

	prompt := fmt.Sprintf(
		"Summarize the following research record for %s in 3-5 sentences for a sales team. Focus on growth signals and risks.\n\n%s",
		companyKey, recordJSON,
	)

	return a.generator.GenerateContent(ctx, prompt)
}

func buildPrompt(sourceJSON string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "News item:\n{{SOURCE_JSON}}\n\nJSON Response:"
	}
	return strings.ReplaceAll(template, "{{SOURCE_JSON}}", sourceJSON)
}

func parseResponse(raw string) (*ai.Assessment, error) {
	cleaned := extractJSON(strings.TrimSpace(raw))

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	score := coerceFloat(data["score"])
	if math.IsNaN(score) {
		score = 0
	}

	confidence := coerceFloat(data["confidence"])
	if math.IsNaN(confidence) {
		confidence = 0
	}

	return &ai.Assessment{
		Sentiment:  coerceString(data["sentiment"]),
		Score:      max(-1.0, min(1.0, score)),
		Confidence: max(0.0, min(1.0, confidence)),
		KeyPhrases: coerceStrings(data["key_phrases"]),
		Reasoning:  coerceString(data["reasoning"]),
	}, nil
}

// extractJSON strips markdown fencing and any prose around the first JSON
// object in the response.
func extractJSON(raw string) string {
	if idx := strings.Index(raw, "```"); idx >= 0 {
		rest := raw[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			raw = rest[:end]
		} else {
			raw = rest
		}
	}

	raw = strings.TrimSpace(raw)

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}

	return raw
}

func coerceString(value any) string {
	s, _ := value.(string)
	return strings.TrimSpace(s)
}

func coerceStrings(value any) []string {
	items, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			out = append(out, s)
		}
	}

	return out
}

func coerceFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}

	return math.NaN()
}
