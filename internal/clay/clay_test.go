package clay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestGetNews(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer clay-key" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		if got := r.URL.Query().Get("domain"); got != "tesla.com" {
			t.Errorf("unexpected domain query: %s", got)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"news": []map[string]any{
				{"title": "Tesla expands", "url": "https://example.com/n", "summary": "expansion news"},
			},
		})
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "clay-key")
	client.APIURL = srv.URL

	news, err := client.GetNews(context.Background(), "tesla.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(news) != 1 || news[0].Title != "Tesla expands" {
		t.Fatalf("unexpected news: %+v", news)
	}
}

func TestGetNewsUnknownDomain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "clay-key")
	client.APIURL = srv.URL

	news, err := client.GetNews(context.Background(), "unknown.com")
	if err != nil {
		t.Fatalf("404 should not be an error, got: %v", err)
	}

	if len(news) != 0 {
		t.Fatalf("expected empty news, got %+v", news)
	}
}

func TestGetSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/companies/news":
			json.NewEncoder(w).Encode(map[string]any{
				"news": []map[string]any{{"title": "n1"}},
			})
		case "/companies/jobs":
			json.NewEncoder(w).Encode(map[string]any{
				"jobs": []map[string]any{{"title": "Engineer"}, {"title": "Designer"}},
			})
		case "/companies/funding":
			http.Error(w, "not found", http.StatusNotFound)
		case "/companies/tech":
			json.NewEncoder(w).Encode(map[string]any{
				"technologies": []string{"go", "postgres"},
			})
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "clay-key")
	client.APIURL = srv.URL

	snapshot, err := client.GetSnapshot(context.Background(), "tesla.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if snapshot.Domain != "tesla.com" {
		t.Fatalf("unexpected domain: %s", snapshot.Domain)
	}

	if len(snapshot.News) != 1 {
		t.Fatalf("unexpected news: %+v", snapshot.News)
	}

	if len(snapshot.Jobs) != 2 {
		t.Fatalf("unexpected jobs: %+v", snapshot.Jobs)
	}

	if len(snapshot.Funding) != 0 {
		t.Fatalf("expected empty funding for unknown domain, got %+v", snapshot.Funding)
	}

	if len(snapshot.TechStack) != 2 {
		t.Fatalf("unexpected tech stack: %+v", snapshot.TechStack)
	}
}

func TestGetSnapshotPartialFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/companies/news" {
			http.Error(w, "server error", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "clay-key")
	client.APIURL = srv.URL

	snapshot, err := client.GetSnapshot(context.Background(), "tesla.com")
	if err != nil {
		t.Fatalf("snapshot should survive per-signal failures, got: %v", err)
	}

	if len(snapshot.News) != 0 {
		t.Fatalf("expected empty news section after failure, got %+v", snapshot.News)
	}
}
