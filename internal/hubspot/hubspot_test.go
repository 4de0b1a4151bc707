package hubspot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestSearchCompanyByDomain(t *testing.T) {
	var captured map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer hs-token" {
			t.Errorf("unexpected authorization header: %s", got)
		}

		if r.URL.Path != "/crm/v3/objects/companies/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]any{
			"total": 1,
			"results": []map[string]any{{
				"id": "12345",
				"properties": map[string]string{
					"name":   "Tesla",
					"domain": "tesla.com",
				},
			}},
		})
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "hs-token")
	client.APIURL = srv.URL

	company, err := client.SearchCompanyByDomain(context.Background(), " Tesla.COM ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if company == nil || company.ID != "12345" {
		t.Fatalf("unexpected company: %+v", company)
	}

	groups := captured["filterGroups"].([]any)
	filters := groups[0].(map[string]any)["filters"].([]any)
	filter := filters[0].(map[string]any)

	if filter["value"] != "tesla.com" {
		t.Fatalf("expected normalized domain, got %v", filter["value"])
	}

	if filter["operator"] != "EQ" {
		t.Fatalf("unexpected operator: %v", filter["operator"])
	}
}

func TestSearchCompanyByDomainNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"total": 0, "results": []any{}})
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "hs-token")
	client.APIURL = srv.URL

	company, err := client.SearchCompanyByDomain(context.Background(), "unknown.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if company != nil {
		t.Fatalf("expected nil for no match, got %+v", company)
	}
}

func TestUpdateCompany(t *testing.T) {
	var captured map[string]any
	var method, path string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		path = r.URL.Path
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"id": "12345"})
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "hs-token")
	client.APIURL = srv.URL

	err := client.UpdateCompany(context.Background(), "12345", map[string]string{
		"crm_fit_score": "0.75",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if method != http.MethodPatch {
		t.Fatalf("expected PATCH, got %s", method)
	}

	if path != "/crm/v3/objects/companies/12345" {
		t.Fatalf("unexpected path: %s", path)
	}

	properties := captured["properties"].(map[string]any)
	if properties["crm_fit_score"] != "0.75" {
		t.Fatalf("unexpected properties: %v", properties)
	}
}

func TestGetCompanyBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := New(zap.NewNop(), "hs-token")
	client.APIURL = srv.URL

	if _, err := client.GetCompany(context.Background(), "12345"); err == nil {
		t.Fatal("expected error for non-2xx status")
	}
}
