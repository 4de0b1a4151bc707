package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spigell/company-researcher/internal/sentiment"

	"go.uber.org/zap"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestAnalystAnalyze(t *testing.T) {
	stub := &stubGenerator{response: `{"sentiment": "positive", "score": 0.7, "confidence": 0.8, "key_phrases": ["record revenue"], "reasoning": "Strong quarter"}`}
	analyst := NewAnalyst(stub, zap.NewNop(), 0.5, 0)

	assessment, err := analyst.Analyze(context.Background(), &sentiment.Source{
		Title:   "Company beats expectations",
		URL:     "https://example.com/news",
		Snippet: "Record revenue this quarter",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Sentiment != "positive" {
		t.Fatalf("unexpected sentiment: %s", assessment.Sentiment)
	}

	if assessment.Score != 0.7 {
		t.Fatalf("unexpected score: %v", assessment.Score)
	}

	if len(assessment.KeyPhrases) != 1 || assessment.KeyPhrases[0] != "record revenue" {
		t.Fatalf("unexpected key phrases: %v", assessment.KeyPhrases)
	}

	if assessment.Raw == "" {
		t.Fatal("expected raw response to be kept")
	}

	if !strings.Contains(stub.lastPrompt, "Company beats expectations") {
		t.Fatal("expected source payload in prompt")
	}
}

func TestAnalystAnalyzeLowConfidenceDowngraded(t *testing.T) {
	stub := &stubGenerator{response: `{"sentiment": "very positive", "score": 0.9, "confidence": 0.2}`}
	analyst := NewAnalyst(stub, zap.NewNop(), 0.5, 0)

	assessment, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Sentiment != "neutral" || assessment.Score != 0 {
		t.Fatalf("expected neutral downgrade, got %s/%v", assessment.Sentiment, assessment.Score)
	}
}

func TestAnalystAnalyzeFencedResponse(t *testing.T) {
	stub := &stubGenerator{response: "Here is the verdict:\n```json\n{\"sentiment\": \"negative\", \"score\": -0.5, \"confidence\": 0.9}\n```\nHope this helps."}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	assessment, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Sentiment != "negative" || assessment.Score != -0.5 {
		t.Fatalf("unexpected assessment: %+v", assessment)
	}
}

func TestAnalystAnalyzeCoercesStringNumbers(t *testing.T) {
	stub := &stubGenerator{response: `{"sentiment": "positive", "score": "0.6", "confidence": "0.7"}`}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	assessment, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 0.6 || assessment.Confidence != 0.7 {
		t.Fatalf("expected coerced numbers, got %v/%v", assessment.Score, assessment.Confidence)
	}
}

func TestAnalystAnalyzeClampsScores(t *testing.T) {
	stub := &stubGenerator{response: `{"sentiment": "positive", "score": 5, "confidence": 3}`}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	assessment, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 1.0 || assessment.Confidence != 1.0 {
		t.Fatalf("expected clamped values, got %v/%v", assessment.Score, assessment.Confidence)
	}
}

func TestAnalystAnalyzeGeneratorError(t *testing.T) {
	stub := &stubGenerator{err: errors.New("quota exceeded")}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	if _, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"}); err == nil {
		t.Fatal("expected generator error to propagate")
	}
}

func TestAnalystAnalyzeInvalidJSON(t *testing.T) {
	stub := &stubGenerator{response: "I can not answer that."}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	if _, err := analyst.Analyze(context.Background(), &sentiment.Source{Title: "t"}); err == nil {
		t.Fatal("expected parse error for non-JSON response")
	}
}

func TestAnalystSummarize(t *testing.T) {
	stub := &stubGenerator{response: "Growing fast, hiring aggressively."}
	analyst := NewAnalyst(stub, zap.NewNop(), 0, 0)

	summary, err := analyst.Summarize(context.Background(), "tesla - tesla.com", map[string]any{
		"industry": "Automotive",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary != "Growing fast, hiring aggressively." {
		t.Fatalf("unexpected summary: %s", summary)
	}

	if !strings.Contains(stub.lastPrompt, "tesla - tesla.com") {
		t.Fatal("expected company key in prompt")
	}

	if !strings.Contains(stub.lastPrompt, "Automotive") {
		t.Fatal("expected record payload in prompt")
	}
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"prose before {\"a\": 1} prose after", `{"a": 1}`},
		{"no json here", "no json here"},
	}

	for _, tc := range cases {
		if got := extractJSON(tc.input); got != tc.want {
			t.Fatalf("extractJSON(%q): expected %q, got %q", tc.input, tc.want, got)
		}
	}
}
