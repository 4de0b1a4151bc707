package lookalike

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/spigell/company-researcher/internal/websearch"
)

// Similarity point values per matched dimension. The total is capped at 1.
const (
	industryPoints      = 0.30
	businessModelPoints = 0.20
	growthStagePoints   = 0.15
	authorityPoints     = 0.15
	techKeywordPoints   = 0.10
	revenueScalePoints  = 0.10
)

var authorityDomains = []string{
	"crunchbase.com",
	"linkedin.com",
	"bloomberg.com",
	"reuters.com",
	"finance.yahoo.com",
	"sec.gov",
}

// revenueScaleTerms are the words a search snippet uses for a company of
// the given scale. Only scales that show up in snippet prose earn points.
var revenueScaleTerms = map[string][]string{
	"large":  {"billion", "large", "enterprise"},
	"medium": {"million", "medium", "mid-size"},
}

// Patterns summarizes what the candidate set has in common.
type Patterns struct {
	AverageSimilarity float64  `json:"average_similarity"`
	MatchQuality      string   `json:"match_quality"`
	TopSources        []string `json:"top_sources,omitempty"`
	Insights          []string `json:"insights,omitempty"`
}

func buildQuery(provider, companyName string, chars Characteristics) string {
	parts := []string{fmt.Sprintf("companies similar to %s", companyName)}
	if chars.Industry != "" {
		parts = append(parts, chars.Industry)
	}
	if chars.BusinessModel != "" {
		parts = append(parts, chars.BusinessModel)
	}

	// Tavily handles natural language better, Exa rewards keyword queries.
	if provider == "tavily" {
		query := strings.Join(parts, " ")
		return fmt.Sprintf("%s competitors and comparable companies", query)
	}

	if len(chars.TechKeywords) > 0 {
		parts = append(parts, strings.Join(chars.TechKeywords, " "))
	}
	return strings.Join(parts, " ")
}

func similarityScore(chars Characteristics, hit *websearch.Result) (float64, []string) {
	text := strings.ToLower(hit.Title + " " + hit.Text)

	var (
		score   float64
		matched []string
	)

	if chars.Industry != "" && strings.Contains(text, strings.ToLower(chars.Industry)) {
		score += industryPoints
		matched = append(matched, "industry")
	}

	for _, keyword := range chars.TechKeywords {
		if strings.Contains(text, keyword) {
			score += techKeywordPoints
			matched = append(matched, "tech:"+keyword)
		}
	}

	if chars.BusinessModel != "" && strings.Contains(text, chars.BusinessModel) {
		score += businessModelPoints
		matched = append(matched, "business_model")
	}

	if chars.GrowthStage != "" && strings.Contains(text, chars.GrowthStage) {
		score += growthStagePoints
		matched = append(matched, "growth_stage")
	}

	if containsAny(text, revenueScaleTerms[chars.RevenueScale]) {
		score += revenueScalePoints
		matched = append(matched, "revenue_scale")
	}

	if isAuthorityURL(hit.URL) {
		score += authorityPoints
		matched = append(matched, "authoritative_source")
	}

	if score > 1 {
		score = 1
	}
	return score, matched
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func isAuthorityURL(rawURL string) bool {
	host := hostOf(rawURL)
	for _, domain := range authorityDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// titleSuffixes are the site decorations search engines append to page
// titles, e.g. "Acme Inc - Crunchbase Company Profile".
var titleSuffixes = []string{
	" - crunchbase",
	" | linkedin",
	" - linkedin",
	" - bloomberg",
	" | bloomberg",
	" - reuters",
	" - yahoo finance",
	" | yahoo finance",
	" - wikipedia",
	" company profile",
	" - overview",
}

func extractCompanyName(title string) string {
	name := strings.TrimSpace(title)
	if name == "" {
		return ""
	}

	lower := strings.ToLower(name)
	for _, suffix := range titleSuffixes {
		if idx := strings.Index(lower, suffix); idx > 0 {
			name = strings.TrimSpace(name[:idx])
			lower = strings.ToLower(name)
		}
	}

	// A remaining separator usually splits name from a tagline.
	for _, sep := range []string{" - ", " | ", ": "} {
		if before, _, found := strings.Cut(name, sep); found {
			name = strings.TrimSpace(before)
			break
		}
	}

	if name == "" || len(name) > 60 {
		return ""
	}
	return name
}

func analyzePatterns(candidates []*Candidate) Patterns {
	if len(candidates) == 0 {
		return Patterns{
			MatchQuality: "none",
			Insights:     []string{"No similar companies found"},
		}
	}

	var sum float64
	hostCounts := make(map[string]int)
	for _, c := range candidates {
		sum += c.Similarity
		if host := hostOf(c.URL); host != "" {
			hostCounts[host]++
		}
	}
	avg := sum / float64(len(candidates))

	quality, insight := "low", "Limited similarity matches - consider broader search criteria"
	switch {
	case avg > 0.6:
		quality, insight = "high", "High-quality matches found with strong similarity indicators"
	case avg > 0.4:
		quality, insight = "moderate", "Moderate similarity matches found"
	}

	hosts := make([]string, 0, len(hostCounts))
	for host := range hostCounts {
		hosts = append(hosts, host)
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hostCounts[hosts[i]] != hostCounts[hosts[j]] {
			return hostCounts[hosts[i]] > hostCounts[hosts[j]]
		}
		return hosts[i] < hosts[j]
	})
	if len(hosts) > 3 {
		hosts = hosts[:3]
	}

	return Patterns{
		AverageSimilarity: avg,
		MatchQuality:      quality,
		TopSources:        hosts,
		Insights:          []string{insight},
	}
}
