package sentiment

import "strings"

// Growth score component weights.
const (
	sentimentWeight = 0.40
	hiringWeight    = 0.35
	financialWeight = 0.25
)

// GrowthComponent is a single weighted input to the growth score.
type GrowthComponent struct {
	Score        float64 `json:"score"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
}

// GrowthScore combines news sentiment, hiring signals and financial
// momentum into a single indicator.
type GrowthScore struct {
	Score        float64                    `json:"growth_score"`
	DisplayScore int                        `json:"display_score"`
	Category     string                     `json:"growth_category"`
	Components   map[string]GrowthComponent `json:"components"`
}

// HiringData carries hiring indicators taken from a research record.
type HiringData struct {
	HiringStatus   string `json:"hiring_status"`
	ExpansionPlans string `json:"expansion_plans"`
	OpenPositions  int    `json:"open_positions"`
}

// FinancialData carries financial indicators taken from a research record.
type FinancialData struct {
	Revenue       string `json:"revenue"`
	RevenueGrowth string `json:"revenue_growth"`
	Funding       string `json:"funding"`
}

// CalculateGrowthScore blends sentiment (0.40), hiring (0.35) and financial
// momentum (0.25) into a [-1, 1] score presented on a 0-100 scale.
func (a *Analyzer) CalculateGrowthScore(sources []*Source, hiring *HiringData, financial *FinancialData) *GrowthScore {
	sentimentScore := a.AnalyzeSources(sources).Score
	hiringScore := hiringSignalScore(hiring)
	financialScore := financialMomentumScore(financial)

	score := sentimentScore*sentimentWeight + hiringScore*hiringWeight + financialScore*financialWeight

	return &GrowthScore{
		Score:        score,
		DisplayScore: int((score + 1) * 50),
		Category:     growthCategory(score),
		Components: map[string]GrowthComponent{
			"sentiment": {Score: sentimentScore, Weight: sentimentWeight, Contribution: sentimentScore * sentimentWeight},
			"hiring":    {Score: hiringScore, Weight: hiringWeight, Contribution: hiringScore * hiringWeight},
			"financial": {Score: financialScore, Weight: financialWeight, Contribution: financialScore * financialWeight},
		},
	}
}

func growthCategory(score float64) string {
	switch {
	case score >= 0.4:
		return "Strong Growth"
	case score >= 0.15:
		return "Moderate Growth"
	case score >= -0.15:
		return "Stable"
	case score >= -0.4:
		return "Cautious"
	default:
		return "Declining"
	}
}

func hiringSignalScore(hiring *HiringData) float64 {
	if hiring == nil {
		return 0
	}

	score := 0.0
	status := strings.ToLower(hiring.HiringStatus)
	plans := strings.ToLower(hiring.ExpansionPlans)

	// "hiring freeze" must not count as hiring.
	switch {
	case strings.Contains(status, "freeze") || strings.Contains(status, "layoff"):
		score -= 0.6
	case strings.Contains(status, "actively hiring"):
		score += 0.6
	case strings.Contains(status, "hiring"):
		score += 0.3
	}

	switch plans {
	case "yes", "true", "expanding":
		score += 0.4
	case "no", "false":
		score -= 0.2
	}

	if hiring.OpenPositions > 50 {
		score += 0.2
	}

	return max(-1.0, min(1.0, score))
}

func financialMomentumScore(financial *FinancialData) float64 {
	if financial == nil {
		return 0
	}

	score := 0.0
	growth := strings.ToLower(financial.RevenueGrowth)

	switch {
	case strings.Contains(growth, "declin") || strings.HasPrefix(growth, "-"):
		score -= 0.5
	case growth != "" && growth != "n/a" && growth != "not found":
		score += 0.4
	}

	if funding := strings.ToLower(financial.Funding); funding != "" && funding != "n/a" && funding != "not found" {
		score += 0.3
	}

	if revenue := strings.ToLower(financial.Revenue); strings.Contains(revenue, "billion") || strings.HasSuffix(revenue, "b") {
		score += 0.2
	}

	return max(-1.0, min(1.0, score))
}
