// Package enrich adds financial context (revenue, market cap, employees,
// industry) to discovered companies using snippet extraction and
// industry-level estimation.
package enrich

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Financials holds the enrichment result for a single company. Source is
// "snippet", "known" or "estimated" depending on how the numbers were
// obtained.
type Financials struct {
	Revenue   string `json:"revenue,omitempty"`
	MarketCap string `json:"market_cap,omitempty"`
	Employees string `json:"employees,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Source    string `json:"financial_source,omitempty"`
}

type Enricher struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Enricher {
	return &Enricher{logger: logger}
}

var (
	revenuePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*billion`),
		regexp.MustCompile(`(?i)\$(\d+(?:\.\d+)?)\s*B\b`),
		regexp.MustCompile(`(?i)revenue.*?\$(\d+(?:\.\d+)?)\s*billion`),
		regexp.MustCompile(`(?i)sales.*?\$(\d+(?:\.\d+)?)\s*billion`),
	}

	marketCapPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)market cap.*?\$(\d+(?:\.\d+)?)\s*billion`),
		regexp.MustCompile(`(?i)valued at.*?\$(\d+(?:\.\d+)?)\s*billion`),
		regexp.MustCompile(`(?i)worth.*?\$(\d+(?:\.\d+)?)\s*billion`),
	}

	employeePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+,?\d*)\s*employees`),
		regexp.MustCompile(`(?i)workforce of (\d+,?\d*)`),
		regexp.MustCompile(`(?i)employs (\d+,?\d*)`),
	}

	nameParens = regexp.MustCompile(`\s*\([^)]*\)`)
	nameDash   = regexp.MustCompile(`\s*-.*$`)
	namePipe   = regexp.MustCompile(`\s*\|.*$`)
)

// knownCompanies carries approximate figures for companies that show up
// constantly in lookalike results.
var knownCompanies = map[string]Financials{
	"nvidia":     {Revenue: "$60.9B", MarketCap: "$1.8T", Industry: "Semiconductors"},
	"rivian":     {Revenue: "$4.4B", MarketCap: "$15.2B", Industry: "Electric Vehicles"},
	"lucid":      {Revenue: "$0.6B", MarketCap: "$8.1B", Industry: "Electric Vehicles"},
	"nio":        {Revenue: "$7.0B", MarketCap: "$9.8B", Industry: "Electric Vehicles"},
	"byd":        {Revenue: "$70.2B", MarketCap: "$95.4B", Industry: "Electric Vehicles"},
	"ford":       {Revenue: "$176.2B", MarketCap: "$48.5B", Industry: "Automotive"},
	"gm":         {Revenue: "$171.8B", MarketCap: "$54.2B", Industry: "Automotive"},
	"volkswagen": {Revenue: "$279.2B", MarketCap: "$58.9B", Industry: "Automotive"},
	"toyota":     {Revenue: "$274.5B", MarketCap: "$245.1B", Industry: "Automotive"},
}

type industryEstimate struct {
	industry      string
	revenueRange  [2]float64 // billions
	capMultiplier float64
}

var industryEstimates = map[string]industryEstimate{
	"electric vehicle": {industry: "Electric Vehicles", revenueRange: [2]float64{0.5, 15.0}, capMultiplier: 3.0},
	"automotive":       {industry: "Automotive", revenueRange: [2]float64{10.0, 200.0}, capMultiplier: 0.8},
	"semiconductor":    {industry: "Semiconductors", revenueRange: [2]float64{1.0, 80.0}, capMultiplier: 8.0},
	"software":         {industry: "Software", revenueRange: [2]float64{0.1, 50.0}, capMultiplier: 12.0},
}

// Enrich resolves financials for the given company name and descriptive
// snippet. The zero Financials value is returned when nothing usable can be
// extracted or estimated.
func (e *Enricher) Enrich(name, snippet string) Financials {
	cleaned := CleanCompanyName(name)

	result := extractFromSnippet(snippet)
	if result.Revenue != "" || result.MarketCap != "" || result.Employees != "" {
		result.Source = "snippet"
	}

	if known, ok := lookupKnown(cleaned); ok {
		if result.Revenue == "" {
			result.Revenue = known.Revenue
		}
		if result.MarketCap == "" {
			result.MarketCap = known.MarketCap
		}
		if result.Industry == "" {
			result.Industry = known.Industry
		}
		result.Source = "known"
	}

	if result.Revenue == "" {
		if estimated, ok := estimateByIndustry(cleaned, snippet); ok {
			result.Revenue = estimated.Revenue
			result.MarketCap = estimated.MarketCap
			if result.Industry == "" {
				result.Industry = estimated.Industry
			}
			result.Source = "estimated"
		}
	}

	return result
}

// CleanCompanyName strips page-title noise (parentheses, dash and pipe
// tails) and keeps at most three words.
func CleanCompanyName(name string) string {
	name = nameParens.ReplaceAllString(name, "")
	name = nameDash.ReplaceAllString(name, "")
	name = namePipe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	words := strings.Fields(name)
	if len(words) > 3 {
		words = words[:3]
	}

	return strings.Join(words, " ")
}

func extractFromSnippet(snippet string) Financials {
	var result Financials

	for _, pattern := range revenuePatterns {
		if match := pattern.FindStringSubmatch(snippet); match != nil {
			if billions, err := strconv.ParseFloat(match[1], 64); err == nil {
				result.Revenue = fmt.Sprintf("$%.1fB", billions)
				break
			}
		}
	}

	for _, pattern := range marketCapPatterns {
		if match := pattern.FindStringSubmatch(snippet); match != nil {
			if billions, err := strconv.ParseFloat(match[1], 64); err == nil {
				result.MarketCap = fmt.Sprintf("$%.1fB", billions)
				break
			}
		}
	}

	for _, pattern := range employeePatterns {
		if match := pattern.FindStringSubmatch(snippet); match != nil {
			raw := strings.ReplaceAll(match[1], ",", "")
			if count, err := strconv.Atoi(raw); err == nil {
				result.Employees = formatThousands(count)
				break
			}
		}
	}

	return result
}

func lookupKnown(name string) (Financials, bool) {
	lower := strings.ToLower(name)
	if lower == "" {
		return Financials{}, false
	}

	// Sorted so a name matching several entries resolves the same way
	// every time.
	for _, key := range sortedKeys(knownCompanies) {
		if strings.Contains(lower, key) || strings.Contains(key, lower) {
			return knownCompanies[key], true
		}
	}
	return Financials{}, false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func estimateByIndustry(name, snippet string) (Financials, bool) {
	text := strings.ToLower(name + " " + snippet)

	for _, pattern := range sortedKeys(industryEstimates) {
		estimate := industryEstimates[pattern]
		if !strings.Contains(text, pattern) {
			continue
		}

		var revenue float64
		switch {
		case strings.Contains(text, "startup") || strings.Contains(text, "founded 20"):
			revenue = estimate.revenueRange[0]
		case strings.Contains(text, "billion") || strings.Contains(text, "major") || strings.Contains(text, "leading"):
			revenue = estimate.revenueRange[1] * 0.7
		default:
			revenue = (estimate.revenueRange[0] + estimate.revenueRange[1]) / 2
		}

		return Financials{
			Revenue:   fmt.Sprintf("$%.1fB", revenue),
			MarketCap: fmt.Sprintf("$%.1fB", revenue*estimate.capMultiplier),
			Industry:  estimate.industry,
			Source:    "estimated",
		}, true
	}

	return Financials{}, false
}

func formatThousands(n int) string {
	s := strconv.Itoa(n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}

	return b.String()
}
