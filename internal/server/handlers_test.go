package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spigell/company-researcher/internal/ai"
	"github.com/spigell/company-researcher/internal/astra"
	"github.com/spigell/company-researcher/internal/cache"
	"github.com/spigell/company-researcher/internal/langflow"
	"github.com/spigell/company-researcher/internal/research"
	"github.com/spigell/company-researcher/internal/scheduler"
	"github.com/spigell/company-researcher/internal/scoring"
	"github.com/spigell/company-researcher/internal/sentiment"

	"go.uber.org/zap"
)

func testServer(t *testing.T, deps Deps) *Server {
	t.Helper()

	if deps.Sentiment == nil {
		deps.Sentiment = sentiment.New(zap.NewNop())
	}
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New(zap.NewNop())
	}
	if deps.Scorer == nil {
		caches, err := cache.NewManager(cache.DefaultConfig(), zap.NewNop())
		if err != nil {
			t.Fatalf("creating caches: %v", err)
		}
		t.Cleanup(func() { caches.Close() })
		deps.Cache = caches
		deps.Scorer = scoring.New(zap.NewNop(), caches)
	}

	return New(zap.NewNop(), ":0", deps)
}

func doRequest(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)

	var parsed envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &parsed); err != nil {
		t.Fatalf("parsing response envelope: %v (body: %s)", err, rec.Body.String())
	}

	return rec, parsed
}

func TestRootListsEndpoints(t *testing.T) {
	s := testServer(t, Deps{})

	rec, env := doRequest(t, s, http.MethodGet, "/", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	if !env.Success {
		t.Fatal("expected success envelope")
	}
}

func TestSentimentEndpoint(t *testing.T) {
	s := testServer(t, Deps{})

	body := `{
		"company_name": "Tesla",
		"sources": [{"title": "Company reports record growth", "snippet": ""}]
	}`

	rec, env := doRequest(t, s, http.MethodPost, "/api/sentiment", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	data := env.Data.(map[string]any)
	analysis := data["sentiment"].(map[string]any)

	if analysis["overall_sentiment"] != "very positive" {
		t.Fatalf("unexpected sentiment: %v", analysis["overall_sentiment"])
	}

	if data["growth"] == nil {
		t.Fatal("expected growth score in response")
	}
}

type fixedAnalyst struct {
	assessment *ai.Assessment
}

func (f *fixedAnalyst) Analyze(context.Context, *sentiment.Source) (*ai.Assessment, error) {
	return f.assessment, nil
}

func (f *fixedAnalyst) Summarize(context.Context, string, map[string]any) (string, error) {
	return "", nil
}

func TestSentimentEndpointPrefersAnalyst(t *testing.T) {
	// A title the lexicon reads as very positive; the analyst disagrees.
	analyst := &fixedAnalyst{assessment: &ai.Assessment{
		Sentiment: "negative", Score: -0.3, Confidence: 0.9, Reasoning: "model verdict",
	}}
	s := testServer(t, Deps{Analyst: analyst})

	body := `{
		"company_name": "Tesla",
		"sources": [{"title": "Company reports record growth", "snippet": ""}]
	}`

	rec, env := doRequest(t, s, http.MethodPost, "/api/sentiment", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	data := env.Data.(map[string]any)
	analysis := data["sentiment"].(map[string]any)

	if analysis["overall_sentiment"] != "negative" {
		t.Fatalf("expected analyst verdict, got %v", analysis["overall_sentiment"])
	}

	perSource := analysis["source_sentiments"].([]any)[0].(map[string]any)
	if perSource["reasoning"] != "model verdict" {
		t.Fatalf("expected analyst reasoning, got %v", perSource["reasoning"])
	}
}

func TestScoringWeightsLifecycle(t *testing.T) {
	s := testServer(t, Deps{})

	_, env := doRequest(t, s, http.MethodGet, "/api/scoring/weights", "")
	if !env.Success {
		t.Fatal("expected success on get weights")
	}

	rec, env := doRequest(t, s, http.MethodPost, "/api/scoring/weights", `{"weights": {"hiring": 0.5}}`)
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("update failed: %d %s", rec.Code, env.Error)
	}

	rec, env = doRequest(t, s, http.MethodPost, "/api/scoring/weights", `{"weights": {"hiring": 1.5}}`)
	if rec.Code != http.StatusBadRequest || env.Success {
		t.Fatalf("expected rejection of out-of-range weight, got %d", rec.Code)
	}

	rec, env = doRequest(t, s, http.MethodPost, "/api/scoring/weights/reset", "")
	if rec.Code != http.StatusOK || !env.Success {
		t.Fatalf("reset failed: %d", rec.Code)
	}

	data := env.Data.(map[string]any)
	weights := data["weights"].(map[string]any)
	if weights["hiring"] != 0.1 {
		t.Fatalf("expected default hiring weight after reset, got %v", weights["hiring"])
	}
}

func TestScoreEndpoint(t *testing.T) {
	s := testServer(t, Deps{})

	body := `{
		"entity_id": "company-1",
		"entity_type": "company",
		"signals": {"industry_match": 1.0}
	}`

	rec, env := doRequest(t, s, http.MethodPost, "/api/scoring/score", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	data := env.Data.(map[string]any)
	if data["crm_score"] != 0.2 {
		t.Fatalf("unexpected score: %v", data["crm_score"])
	}
}

func TestScoreEndpointValidation(t *testing.T) {
	s := testServer(t, Deps{})

	rec, _ := doRequest(t, s, http.MethodPost, "/api/scoring/score", `{"entity_type": "company"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing entity id, got %d", rec.Code)
	}
}

func TestSchedulerEndpoints(t *testing.T) {
	sched := scheduler.New(zap.NewNop())
	s := testServer(t, Deps{
		Scheduler: sched,
		Tasks: map[string]TaskDef{
			"noop": {Name: "no-op task", Fn: func(context.Context) error { return nil }},
		},
	})

	_, env := doRequest(t, s, http.MethodGet, "/api/scheduler/status", "")
	data := env.Data.(map[string]any)
	if data["running"] != false {
		t.Fatal("expected scheduler not running")
	}

	rec, _ := doRequest(t, s, http.MethodPost, "/api/scheduler/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start failed: %d", rec.Code)
	}
	defer sched.Stop()

	rec, _ = doRequest(t, s, http.MethodPost, "/api/scheduler/start", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected error starting twice, got %d", rec.Code)
	}

	rec, env = doRequest(t, s, http.MethodPost, "/api/scheduler/tasks", `{"type": "noop", "interval_seconds": 60}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("add task failed: %d (%s)", rec.Code, rec.Body.String())
	}

	status := env.Data.(map[string]any)
	if status["task_id"] != "noop" {
		t.Fatalf("unexpected task id: %v", status["task_id"])
	}

	rec, _ = doRequest(t, s, http.MethodPost, "/api/scheduler/tasks", `{"type": "bogus", "interval_seconds": 60}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected rejection of unknown task type, got %d", rec.Code)
	}

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/scheduler/tasks/noop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove task failed: %d", rec.Code)
	}

	rec, _ = doRequest(t, s, http.MethodDelete, "/api/scheduler/tasks/noop", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 removing missing task, got %d", rec.Code)
	}

	rec, _ = doRequest(t, s, http.MethodPost, "/api/scheduler/stop", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("stop failed: %d", rec.Code)
	}
}

func fakeAstra(t *testing.T, stored map[string]any) *astra.Store {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)

		response := map[string]any{}
		switch {
		case payload["find"] != nil:
			var documents []*astra.Document
			if stored != nil {
				documents = append(documents, &astra.Document{ID: "doc-1", Metadata: stored})
			}
			response["data"] = map[string]any{"documents": documents}
		case payload["insertOne"] != nil:
			response["status"] = map[string]any{"insertedIds": []string{"doc-2"}}
		case payload["estimatedDocumentCount"] != nil:
			response["status"] = map[string]any{"count": 7}
		}
		json.NewEncoder(w).Encode(response)
	}))
	t.Cleanup(srv.Close)

	return astra.NewStore(astra.New(zap.NewNop(), "token", srv.URL), zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	store := fakeAstra(t, nil)
	s := testServer(t, Deps{Store: store})

	rec, env := doRequest(t, s, http.MethodGet, "/api/health", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	data := env.Data.(map[string]any)
	if data["status"] != "healthy" {
		t.Fatalf("unexpected health: %v", data)
	}

	if data["documents"] != float64(7) {
		t.Fatalf("unexpected document count: %v", data["documents"])
	}
}

func TestResearchEndpoint(t *testing.T) {
	stored := map[string]any{
		"company_name": "tesla - tesla.com",
		"industry":     "Automotive",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	}
	store := fakeAstra(t, stored)

	flow := langflow.New(zap.NewNop(), "key", "http://127.0.0.1:0")
	svc := research.New(zap.NewNop(), store, flow)

	s := testServer(t, Deps{Store: store, Research: svc})

	body := `{"company_name": "Tesla", "domain_name": "tesla.com"}`
	rec, env := doRequest(t, s, http.MethodPost, "/api/research", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d (%s)", rec.Code, rec.Body.String())
	}

	data := env.Data.(map[string]any)
	if data["is_cached"] != true {
		t.Fatalf("expected cached result, got %v", data)
	}
}

func TestResearchEndpointValidation(t *testing.T) {
	s := testServer(t, Deps{Research: research.New(zap.NewNop(), fakeAstra(t, nil), langflow.New(zap.NewNop(), "k", "http://127.0.0.1:0"))})

	rec, _ := doRequest(t, s, http.MethodPost, "/api/research", `{"company_name": ""}`)
	if rec.Code != http.StatusInternalServerError && rec.Code != http.StatusBadRequest {
		t.Fatalf("expected failure status, got %d", rec.Code)
	}
}
