package langflow

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"
)

// Deterministic generation keyed on the company name keeps fallback data
// stable across requests for the same company.

// Checked in order; a name matching several buckets always lands in the
// first one.
var fallbackIndustryKeywords = []struct {
	industry string
	keywords []string
}{
	{"Technology", []string{"tech", "soft", "data", "ai", "digital"}},
	{"Healthcare", []string{"health", "medical", "pharma", "bio"}},
	{"Finance", []string{"bank", "finance", "capital", "invest"}},
}

var fallbackIndustries = []string{"Technology", "Healthcare", "Finance", "Manufacturing", "Retail", "Consulting"}

var fallbackEmployeeBands = []string{"1K-5K", "5K-10K", "10K-50K", "50K+"}

var fallbackCities = []string{
	"San Francisco, CA", "New York, NY", "Seattle, WA",
	"Austin, TX", "Boston, MA", "Chicago, IL",
}

func fallbackResult(companyName, domainName, reason string) *Result {
	data := generateMockData(companyName, domainName)

	return &Result{
		Response: map[string]any{
			"message":   fmt.Sprintf("Generated mock data for %s due to API unavailability", companyName),
			"data":      data,
			"timestamp": time.Now().Format(time.RFC3339),
			"source":    "fallback_generator",
		},
		StatusCode:     200,
		Fallback:       true,
		FallbackReason: reason,
	}
}

func generateMockData(companyName, domainName string) map[string]any {
	lower := strings.ToLower(companyName)
	seed := nameHash(companyName)

	industry := ""
	for _, bucket := range fallbackIndustryKeywords {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lower, keyword) {
				industry = bucket.industry
				break
			}
		}
		if industry != "" {
			break
		}
	}
	if industry == "" {
		industry = fallbackIndustries[seed%uint32(len(fallbackIndustries))]
	}

	revenueBase := seed%50 + 10 // 10-60B range
	revenue := fmt.Sprintf("%d.%dB", revenueBase, seed%9+1)

	return map[string]any{
		"company_name": fmt.Sprintf("%s - %s", companyName, domainName),
		"industry":     industry,
		"revenue":      revenue,
		"employees":    fallbackEmployeeBands[seed%uint32(len(fallbackEmployeeBands))],
		"headquarters": fallbackCities[seed%uint32(len(fallbackCities))],
		"domain_name":  domainName,
		"timestamp":    time.Now().Format(time.RFC3339),
		"data_source":  "fallback_mock",
		"status":       "success",
		"company_info": map[string]any{
			"name":        companyName,
			"domain":      domainName,
			"description": fmt.Sprintf("Mock data for %s - a %s company", companyName, strings.ToLower(industry)),
		},
		"note": "This is mock data generated due to API unavailability",
	}
}

func nameHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32() % 1000
}
