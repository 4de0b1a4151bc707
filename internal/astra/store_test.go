package astra

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeDataAPI answers Data API commands with canned documents and records
// the commands it saw.
type fakeDataAPI struct {
	documents []*Document
	commands  []map[string]any
}

func (f *fakeDataAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.commands = append(f.commands, payload)

		response := map[string]any{}
		switch {
		case payload["find"] != nil:
			response["data"] = map[string]any{"documents": f.documents}
		case payload["insertOne"] != nil:
			response["status"] = map[string]any{"insertedIds": []string{"doc-1"}}
		case payload["deleteMany"] != nil:
			response["status"] = map[string]any{"deletedCount": 2}
		case payload["estimatedDocumentCount"] != nil:
			response["status"] = map[string]any{"count": 42}
		}

		json.NewEncoder(w).Encode(response)
	}
}

func newTestStore(t *testing.T, fake *fakeDataAPI) (*Store, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client := New(zap.NewNop(), "test-token", srv.URL)
	return NewStore(client, zap.NewNop()), srv
}

func TestGetCompanyDataFresh(t *testing.T) {
	fake := &fakeDataAPI{
		documents: []*Document{{
			ID: "doc-1",
			Metadata: map[string]any{
				"company_name": "tesla - tesla.com",
				"timestamp":    time.Now().UTC().Format(time.RFC3339),
				"industry":     "Automotive",
			},
		}},
	}
	store, _ := newTestStore(t, fake)

	data, err := store.GetCompanyData(context.Background(), "tesla - tesla.com", 360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data == nil {
		t.Fatal("expected data to be found")
	}

	if data["industry"] != "Automotive" {
		t.Fatalf("unexpected metadata: %v", data)
	}
}

func TestGetCompanyDataStale(t *testing.T) {
	fake := &fakeDataAPI{
		documents: []*Document{{
			ID: "doc-1",
			Metadata: map[string]any{
				"company_name": "tesla - tesla.com",
				"timestamp":    time.Now().AddDate(-2, 0, 0).UTC().Format(time.RFC3339),
			},
		}},
	}
	store, _ := newTestStore(t, fake)

	data, err := store.GetCompanyData(context.Background(), "tesla - tesla.com", 360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data != nil {
		t.Fatalf("expected stale data to be treated as absent, got %v", data)
	}
}

func TestGetCompanyDataNotFound(t *testing.T) {
	fake := &fakeDataAPI{}
	store, _ := newTestStore(t, fake)

	data, err := store.GetCompanyData(context.Background(), "tesla - tesla.com", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data != nil {
		t.Fatalf("expected no data, got %v", data)
	}

	// Every lookup strategy should have been tried.
	if len(fake.commands) != len(searchFilters("tesla - tesla.com")) {
		t.Fatalf("expected %d lookups, got %d", len(searchFilters("tesla - tesla.com")), len(fake.commands))
	}
}

func TestGetCompanyDataLegacyNoTimestamp(t *testing.T) {
	fake := &fakeDataAPI{
		documents: []*Document{{
			ID:       "doc-1",
			Metadata: map[string]any{"company_name": "tesla - tesla.com"},
		}},
	}
	store, _ := newTestStore(t, fake)

	data, err := store.GetCompanyData(context.Background(), "tesla - tesla.com", 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if data == nil {
		t.Fatal("expected legacy record without timestamp to be served")
	}
}

func TestStoreCompanyData(t *testing.T) {
	fake := &fakeDataAPI{}
	store, _ := newTestStore(t, fake)

	err := store.StoreCompanyData(context.Background(), "tesla - tesla.com", map[string]any{
		"industry": "Automotive",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.commands) != 1 {
		t.Fatalf("expected one command, got %d", len(fake.commands))
	}

	insert := fake.commands[0]["insertOne"].(map[string]any)
	doc := insert["document"].(map[string]any)

	if doc["$vectorize"] != "tesla - tesla.com" {
		t.Fatalf("expected vectorize text, got %v", doc["$vectorize"])
	}

	metadata := doc["metadata"].(map[string]any)
	if metadata["company_name"] != "tesla - tesla.com" {
		t.Fatalf("unexpected company_name: %v", metadata["company_name"])
	}

	if metadata["data_source"] != "langflow_api" {
		t.Fatalf("unexpected data_source: %v", metadata["data_source"])
	}

	if metadata["timestamp"] == "" {
		t.Fatal("expected timestamp to be set")
	}
}

func TestStats(t *testing.T) {
	fake := &fakeDataAPI{}
	store, _ := newTestStore(t, fake)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.DocumentCount != 42 {
		t.Fatalf("unexpected count: %d", stats.DocumentCount)
	}

	if stats.Status != "connected" {
		t.Fatalf("unexpected status: %s", stats.Status)
	}
}

func TestDeleteCompanyData(t *testing.T) {
	fake := &fakeDataAPI{}
	store, _ := newTestStore(t, fake)

	deleted, err := store.DeleteCompanyData(context.Background(), "tesla - tesla.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
}

func TestSelectBestDocumentPrefersExactMatch(t *testing.T) {
	store := NewStore(New(zap.NewNop(), "t", "http://unused"), zap.NewNop())

	docs := []*Document{
		{ID: "a", Metadata: map[string]any{"company_name": "other company"}},
		{ID: "b", Metadata: map[string]any{"company_name": "Tesla - tesla.com"}},
	}

	best := store.selectBestDocument(docs, "tesla - tesla.com")
	if best.ID != "b" {
		t.Fatalf("expected exact match to win, got %s", best.ID)
	}
}

func TestSelectBestDocumentPrefersRicherRecord(t *testing.T) {
	store := NewStore(New(zap.NewNop(), "t", "http://unused"), zap.NewNop())

	docs := []*Document{
		{ID: "thin", Metadata: map[string]any{"company_name": "x"}},
		{ID: "rich", Metadata: map[string]any{
			"company_name": "x",
			"financial_data": map[string]any{
				"revenue":    "$10B",
				"market_cap": "$50B",
			},
			"sources": []any{"a", "b", "c"},
		}},
	}

	best := store.selectBestDocument(docs, "x")
	if best.ID != "rich" {
		t.Fatalf("expected richer record to win, got %s", best.ID)
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"2025-06-01T10:00:00Z", true},
		{"2025-06-01T10:00:00.123456789Z", true},
		{"2025-06-01T10:00:00.123456", true},
		{"2025-06-01T10:00:00", true},
		{"2025-06-01 10:00:00", true},
		{"not a timestamp", false},
		{"", false},
	}

	for _, tc := range cases {
		if _, ok := parseTimestamp(tc.value); ok != tc.ok {
			t.Fatalf("parseTimestamp(%q): expected ok=%v", tc.value, tc.ok)
		}
	}
}

func TestSearchFilters(t *testing.T) {
	filters := searchFilters("tesla - tesla.com")

	if len(filters) != 9 {
		t.Fatalf("expected 9 strategies, got %d", len(filters))
	}

	if filters[0]["metadata.company_name"] != "tesla - tesla.com" {
		t.Fatalf("expected exact key first, got %v", filters[0])
	}

	if filters[4]["metadata.domain_name"] != "tesla.com" {
		t.Fatalf("expected domain strategy, got %v", filters[4])
	}
}
