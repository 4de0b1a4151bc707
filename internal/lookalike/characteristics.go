package lookalike

import (
	"strconv"
	"strings"
)

// Characteristics is the comparable profile extracted from a stored
// research record.
type Characteristics struct {
	Industry      string   `json:"industry,omitempty"`
	RevenueScale  string   `json:"revenue_scale,omitempty"`
	CompanySize   string   `json:"company_size,omitempty"`
	TechKeywords  []string `json:"tech_keywords,omitempty"`
	BusinessModel string   `json:"business_model,omitempty"`
	GrowthStage   string   `json:"growth_stage,omitempty"`
}

const maxTechKeywords = 5

var techKeywordList = []string{
	"ai", "artificial intelligence", "machine learning", "cloud", "saas", "software",
	"fintech", "blockchain", "cryptocurrency", "mobile", "app", "platform",
	"data", "analytics", "cybersecurity", "iot", "automation", "robotics",
	"biotech", "healthcare", "medtech", "cleantech", "renewable", "electric",
}

// businessModelRules are checked in order; the first match wins.
var businessModelRules = []struct {
	model    string
	keywords []string
}{
	{"saas", []string{"saas", "software", "platform", "subscription"}},
	{"marketplace", []string{"marketplace", "platform", "network"}},
	{"hardware", []string{"manufacturing", "hardware", "device"}},
	{"services", []string{"service", "consulting", "agency"}},
}

// ExtractCharacteristics derives a comparable profile from a stored
// research record. Records nest structured sections under metadata
// (company_info, financial_data, hiring_data); flat records are tolerated.
func ExtractCharacteristics(record map[string]any) Characteristics {
	meta := record
	if m := subMap(record, "metadata"); m != nil {
		meta = m
	}
	info := subMap(meta, "company_info")
	financial := subMap(meta, "financial_data")
	hiring := subMap(meta, "hiring_data")

	industry := strings.ToLower(lookupString("industry", info, meta))
	description := strings.ToLower(lookupString("description", info, meta))
	text := industry + " " + description

	scale := revenueScale(lookupString("revenue", financial, meta))
	hiringStatus := strings.ToLower(lookupString("hiring_status", hiring, meta))
	expansionPlans := strings.ToLower(lookupString("expansion_plans", hiring, meta))

	return Characteristics{
		Industry:      industry,
		RevenueScale:  scale,
		CompanySize:   companySize(lookupValue("employees", info, meta), scale),
		TechKeywords:  techKeywords(text),
		BusinessModel: businessModel(text),
		GrowthStage:   growthStage(hiringStatus, expansionPlans, scale),
	}
}

func revenueScale(revenue string) string {
	switch revenue {
	case "", "N/A", "Not found":
		return "unknown"
	}

	lower := strings.ToLower(revenue)
	switch {
	case strings.Contains(lower, "trillion"):
		return "enterprise"
	case strings.Contains(lower, "billion"):
		return "large"
	case strings.Contains(lower, "million"):
		return "medium"
	default:
		return "small"
	}
}

// growthStage is driven by hiring signals first, then revenue maturity.
func growthStage(hiringStatus, expansionPlans, scale string) string {
	expanding := expansionPlans == "yes" || expansionPlans == "true" || expansionPlans == "expanding"

	switch {
	case strings.Contains(hiringStatus, "actively hiring") && expanding:
		return "high-growth"
	case strings.Contains(hiringStatus, "hiring"):
		return "growing"
	case scale == "large" || scale == "enterprise":
		return "mature"
	default:
		return "stable"
	}
}

func businessModel(text string) string {
	for _, rule := range businessModelRules {
		if containsAny(text, rule.keywords) {
			return rule.model
		}
	}
	return "traditional"
}

func companySize(employees any, scale string) string {
	if count, ok := employeeCount(employees); ok {
		switch {
		case count > 10000:
			return "enterprise"
		case count > 1000:
			return "large"
		case count > 100:
			return "medium"
		default:
			return "small"
		}
	}

	switch scale {
	case "enterprise", "large", "medium":
		return scale
	}
	return "small"
}

func employeeCount(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		return int(val), true
	case int:
		return val, true
	case string:
		if val == "" || val == "N/A" || val == "Not specified" {
			return 0, false
		}
		count, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(val), ",", ""))
		if err != nil {
			return 0, false
		}
		return count, true
	}
	return 0, false
}

func techKeywords(text string) []string {
	var found []string
	for _, keyword := range techKeywordList {
		if strings.Contains(text, keyword) {
			found = append(found, keyword)
			if len(found) == maxTechKeywords {
				break
			}
		}
	}
	return found
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

func lookupString(key string, sources ...map[string]any) string {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if v, ok := src[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func lookupValue(key string, sources ...map[string]any) any {
	for _, src := range sources {
		if src == nil {
			continue
		}
		if v, ok := src[key]; ok && v != nil {
			return v
		}
	}
	return nil
}
