package lookalike

import (
	"testing"
)

func TestExtractCharacteristics(t *testing.T) {
	record := map[string]any{
		"metadata": map[string]any{
			"company_info": map[string]any{
				"industry":    "Automotive",
				"description": "Electric vehicle manufacturer producing battery hardware",
				"employees":   "45,000",
			},
			"financial_data": map[string]any{"revenue": "$96.8 billion"},
			"hiring_data": map[string]any{
				"hiring_status":   "Actively hiring",
				"expansion_plans": "Yes",
			},
		},
	}

	chars := ExtractCharacteristics(record)

	if chars.Industry != "automotive" {
		t.Fatalf("unexpected industry: %s", chars.Industry)
	}

	if chars.RevenueScale != "large" {
		t.Fatalf("expected large revenue scale, got %s", chars.RevenueScale)
	}

	if chars.CompanySize != "enterprise" {
		t.Fatalf("expected enterprise company size, got %s", chars.CompanySize)
	}

	if chars.BusinessModel != "hardware" {
		t.Fatalf("unexpected business model: %s", chars.BusinessModel)
	}

	if chars.GrowthStage != "high-growth" {
		t.Fatalf("expected high-growth stage, got %s", chars.GrowthStage)
	}

	found := false
	for _, keyword := range chars.TechKeywords {
		if keyword == "electric" {
			found = true
		}
	}
	if !found || len(chars.TechKeywords) > maxTechKeywords {
		t.Fatalf("unexpected tech keywords: %v", chars.TechKeywords)
	}
}

func TestExtractCharacteristicsHiringDrivesGrowthStage(t *testing.T) {
	record := map[string]any{
		"hiring_data": map[string]any{
			"hiring_status":   "actively hiring",
			"expansion_plans": "expanding",
		},
	}

	if chars := ExtractCharacteristics(record); chars.GrowthStage != "high-growth" {
		t.Fatalf("expected high-growth from hiring signals, got %q", chars.GrowthStage)
	}
}

func TestGrowthStage(t *testing.T) {
	cases := []struct {
		status string
		plans  string
		scale  string
		want   string
	}{
		{"actively hiring", "yes", "unknown", "high-growth"},
		{"actively hiring", "no", "unknown", "growing"},
		{"hiring", "", "small", "growing"},
		{"not hiring", "", "large", "mature"},
		{"", "", "enterprise", "mature"},
		{"", "", "unknown", "stable"},
	}

	for _, tc := range cases {
		if got := growthStage(tc.status, tc.plans, tc.scale); got != tc.want {
			t.Fatalf("growthStage(%q, %q, %q): expected %q, got %q",
				tc.status, tc.plans, tc.scale, tc.want, got)
		}
	}
}

func TestExtractCharacteristicsDefaults(t *testing.T) {
	chars := ExtractCharacteristics(map[string]any{})

	if chars.Industry != "" {
		t.Fatalf("unexpected industry: %s", chars.Industry)
	}

	if chars.RevenueScale != "unknown" {
		t.Fatalf("expected unknown revenue scale, got %s", chars.RevenueScale)
	}

	if chars.CompanySize != "small" {
		t.Fatalf("expected small company size, got %s", chars.CompanySize)
	}

	if chars.BusinessModel != "traditional" {
		t.Fatalf("expected traditional business model, got %s", chars.BusinessModel)
	}

	if chars.GrowthStage != "stable" {
		t.Fatalf("expected stable growth stage, got %s", chars.GrowthStage)
	}
}

func TestRevenueScale(t *testing.T) {
	cases := []struct {
		revenue string
		want    string
	}{
		{"", "unknown"},
		{"N/A", "unknown"},
		{"$1.2 trillion", "enterprise"},
		{"$96.8 billion", "large"},
		{"$500 million", "medium"},
		{"$750k", "small"},
	}

	for _, tc := range cases {
		if got := revenueScale(tc.revenue); got != tc.want {
			t.Fatalf("revenueScale(%q): expected %q, got %q", tc.revenue, tc.want, got)
		}
	}
}

func TestCompanySizeThresholds(t *testing.T) {
	cases := []struct {
		employees any
		want      string
	}{
		{"50", "small"},
		{"250", "medium"},
		{"1,500", "large"},
		{float64(20000), "enterprise"},
	}

	for _, tc := range cases {
		record := map[string]any{
			"company_info": map[string]any{"employees": tc.employees},
		}
		if chars := ExtractCharacteristics(record); chars.CompanySize != tc.want {
			t.Fatalf("%v employees: expected %s, got %s", tc.employees, tc.want, chars.CompanySize)
		}
	}
}

func TestCompanySizeRevenueFallback(t *testing.T) {
	record := map[string]any{
		"financial_data": map[string]any{"revenue": "$200 million"},
	}

	if chars := ExtractCharacteristics(record); chars.CompanySize != "medium" {
		t.Fatalf("expected medium size from revenue, got %s", chars.CompanySize)
	}
}

func TestBusinessModel(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"enterprise software subscription", "saas"},
		{"two-sided marketplace for freelancers", "marketplace"},
		{"medical device manufacturing", "hardware"},
		{"consulting agency", "services"},
		{"regional grocery chain", "traditional"},
	}

	for _, tc := range cases {
		if got := businessModel(tc.text); got != tc.want {
			t.Fatalf("businessModel(%q): expected %q, got %q", tc.text, tc.want, got)
		}
	}
}

func TestExtractCharacteristicsFlatRecord(t *testing.T) {
	record := map[string]any{
		"industry":  "Software",
		"revenue":   "$3 billion",
		"employees": float64(400),
	}

	chars := ExtractCharacteristics(record)

	if chars.Industry != "software" {
		t.Fatalf("expected industry from flat record, got %s", chars.Industry)
	}

	if chars.CompanySize != "medium" {
		t.Fatalf("expected medium size from flat record, got %s", chars.CompanySize)
	}

	if chars.GrowthStage != "mature" {
		t.Fatalf("expected mature stage from large revenue, got %s", chars.GrowthStage)
	}
}
