package deptrisk

import (
	"time"

	"accessgov/internal/domain/risk"
)

// Factor names used in summaries and comparisons.
const (
	FactorCompliance     = "access_review_compliance"
	FactorOverprivileged = "overprivileged_accounts"
	FactorSoD            = "sod_violations"
	FactorDormant        = "dormant_access"
	FactorOAuth          = "high_risk_oauth"
	FactorAnomalies      = "recent_anomalies"
)

// Weights of the six factors. Compliance contributes as (100 - compliance).
const (
	weightCompliance     = 0.20
	weightOverprivileged = 0.20
	weightSoD            = 0.25
	weightDormant        = 0.10
	weightOAuth          = 0.15
	weightAnomalies      = 0.10
)

// Lookback windows for the count-based factors.
const (
	DormantCutoffDays   = 60
	AnomalyLookbackDays = 30
)

// Summary is one department's aggregated risk posture. Sub-scores are
// clamped to [0,100] before weighting; a factor whose signal source failed
// contributes 0.
type Summary struct {
	Department             string     `json:"department"`
	OverallScore           int        `json:"overallRiskScore"`
	RiskLevel              risk.Level `json:"riskLevel"`
	AccessReviewCompliance int        `json:"accessReviewCompliance"`
	OverprivilegedScore    int        `json:"overprivilegedScore"`
	SoDScore               int        `json:"sodScore"`
	DormantScore           int        `json:"dormantScore"`
	OAuthScore             int        `json:"oauthScore"`
	AnomalyScore           int        `json:"anomalyScore"`
	DegradedFactors        []string   `json:"degradedFactors,omitempty"`
	ComputedAt             time.Time  `json:"computedAt"`
}

func (s Summary) factorScore(factor string) int {
	switch factor {
	case FactorCompliance:
		// Lower compliance means higher risk; compare on the inverted score.
		return risk.Clamp(100 - s.AccessReviewCompliance)
	case FactorOverprivileged:
		return s.OverprivilegedScore
	case FactorSoD:
		return s.SoDScore
	case FactorDormant:
		return s.DormantScore
	case FactorOAuth:
		return s.OAuthScore
	case FactorAnomalies:
		return s.AnomalyScore
	}
	return 0
}

type Ranking struct {
	Rank         int        `json:"rank"`
	Department   string     `json:"department"`
	OverallScore int        `json:"overallRiskScore"`
	RiskLevel    risk.Level `json:"riskLevel"`
}

// Gap is one department trailing the best-practice department on one factor
// by more than the reporting threshold.
type Gap struct {
	Factor          string `json:"factor"`
	Department      string `json:"department"`
	BestDepartment  string `json:"bestDepartment"`
	DepartmentScore int    `json:"departmentScore"`
	BestScore       int    `json:"bestScore"`
	Points          int    `json:"points"`
}

type Comparison struct {
	Rankings      []Ranking         `json:"rankings"`
	BestPractices map[string]string `json:"bestPractices"`
	Gaps          []Gap             `json:"gaps,omitempty"`
}
