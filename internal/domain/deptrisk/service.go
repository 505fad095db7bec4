package deptrisk

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"accessgov/internal/domain/risk"
	"accessgov/internal/platform/events"
)

// Signals supplies the six per-department risk inputs. Compliance is a
// percentage in [0,100]; the rest are raw counts scaled into sub-scores by
// the aggregator.
type Signals interface {
	CampaignCompliance(ctx context.Context, tenantID, department string) (int, error)
	OverprivilegedCount(ctx context.Context, tenantID, department string) (int, error)
	OpenSoDViolations(ctx context.Context, tenantID, department string) (int, error)
	DormantGrants(ctx context.Context, tenantID, department string) (int, error)
	HighRiskOAuthGrants(ctx context.Context, tenantID, department string) (int, error)
	RecentAnomalies(ctx context.Context, tenantID, department string) (int, error)
}

// Points per unit of raw evidence, before the [0,100] clamp. Chosen so a
// handful of serious findings lands a department in the medium band.
const (
	pointsPerOverprivileged = 10
	pointsPerSoDViolation   = 20
	pointsPerDormantGrant   = 2
	pointsPerOAuthGrant     = 15
	pointsPerAnomaly        = 10
)

// gapThreshold is the minimum factor-score distance from the best-practice
// department worth reporting.
const gapThreshold = 20

const maxReportedGaps = 10

type Service struct {
	Signals Signals
	Events  events.Sink
	Now     func() time.Time
}

func NewService(signals Signals, sink events.Sink) *Service {
	return &Service{Signals: signals, Events: sink, Now: time.Now}
}

// Summarize composes the six signals into one weighted score. A failing
// signal source degrades that factor to zero evidence; it never aborts the
// aggregate.
func (s *Service) Summarize(ctx context.Context, tenantID, department string) (Summary, error) {
	summary := Summary{Department: department, ComputedAt: s.Now()}

	compliance := s.signal(ctx, &summary, FactorCompliance, func() (int, error) {
		return s.Signals.CampaignCompliance(ctx, tenantID, department)
	})
	summary.AccessReviewCompliance = risk.Clamp(compliance)
	summary.OverprivilegedScore = risk.Clamp(pointsPerOverprivileged * s.signal(ctx, &summary, FactorOverprivileged, func() (int, error) {
		return s.Signals.OverprivilegedCount(ctx, tenantID, department)
	}))
	summary.SoDScore = risk.Clamp(pointsPerSoDViolation * s.signal(ctx, &summary, FactorSoD, func() (int, error) {
		return s.Signals.OpenSoDViolations(ctx, tenantID, department)
	}))
	summary.DormantScore = risk.Clamp(pointsPerDormantGrant * s.signal(ctx, &summary, FactorDormant, func() (int, error) {
		return s.Signals.DormantGrants(ctx, tenantID, department)
	}))
	summary.OAuthScore = risk.Clamp(pointsPerOAuthGrant * s.signal(ctx, &summary, FactorOAuth, func() (int, error) {
		return s.Signals.HighRiskOAuthGrants(ctx, tenantID, department)
	}))
	summary.AnomalyScore = risk.Clamp(pointsPerAnomaly * s.signal(ctx, &summary, FactorAnomalies, func() (int, error) {
		return s.Signals.RecentAnomalies(ctx, tenantID, department)
	}))

	weighted := weightCompliance*float64(100-summary.AccessReviewCompliance) +
		weightOverprivileged*float64(summary.OverprivilegedScore) +
		weightSoD*float64(summary.SoDScore) +
		weightDormant*float64(summary.DormantScore) +
		weightOAuth*float64(summary.OAuthScore) +
		weightAnomalies*float64(summary.AnomalyScore)
	summary.OverallScore = risk.Clamp(int(math.Round(weighted)))
	summary.RiskLevel = risk.LevelFor(summary.OverallScore)

	if summary.RiskLevel.AtLeast(risk.LevelHigh) && s.Events != nil {
		s.Events.Emit(ctx, events.DepartmentHighRisk, map[string]any{
			"tenantId":   tenantID,
			"department": department,
			"riskScore":  summary.OverallScore,
			"riskLevel":  string(summary.RiskLevel),
		})
	}
	return summary, nil
}

// signal runs one sub-computation, treating failure as zero evidence. A
// compliance failure degrades to 0 compliance contribution as well: the
// caller inverts it, so the degraded value here is 100.
func (s *Service) signal(_ context.Context, summary *Summary, factor string, fetch func() (int, error)) int {
	value, err := fetch()
	if err != nil {
		slog.Warn("risk signal unavailable", "department", summary.Department, "factor", factor, "err", err)
		summary.DegradedFactors = append(summary.DegradedFactors, factor)
		if factor == FactorCompliance {
			return 100
		}
		return 0
	}
	return value
}

// CompareDepartments ranks departments by ascending overall score and
// reports the largest per-factor gaps against each factor's best-practice
// department. Departments whose summaries cannot be computed are skipped.
func (s *Service) CompareDepartments(ctx context.Context, tenantID string, departments []string) (Comparison, error) {
	summaries := make([]Summary, 0, len(departments))
	for _, dept := range departments {
		summary, err := s.Summarize(ctx, tenantID, dept)
		if err != nil {
			slog.Warn("department summary failed", "department", dept, "err", err)
			continue
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].OverallScore < summaries[j].OverallScore
	})

	comparison := Comparison{BestPractices: map[string]string{}}
	for i, summary := range summaries {
		comparison.Rankings = append(comparison.Rankings, Ranking{
			Rank:         i + 1,
			Department:   summary.Department,
			OverallScore: summary.OverallScore,
			RiskLevel:    summary.RiskLevel,
		})
	}

	factors := []string{FactorCompliance, FactorOverprivileged, FactorSoD, FactorDormant, FactorOAuth, FactorAnomalies}
	for _, factor := range factors {
		best, ok := bestPractice(summaries, factor)
		if !ok {
			continue
		}
		comparison.BestPractices[factor] = best.Department
		for _, summary := range summaries {
			if summary.Department == best.Department {
				continue
			}
			gap := summary.factorScore(factor) - best.factorScore(factor)
			if gap <= gapThreshold {
				continue
			}
			comparison.Gaps = append(comparison.Gaps, Gap{
				Factor:          factor,
				Department:      summary.Department,
				BestDepartment:  best.Department,
				DepartmentScore: summary.factorScore(factor),
				BestScore:       best.factorScore(factor),
				Points:          gap,
			})
		}
	}

	sort.SliceStable(comparison.Gaps, func(i, j int) bool {
		return comparison.Gaps[i].Points > comparison.Gaps[j].Points
	})
	if len(comparison.Gaps) > maxReportedGaps {
		comparison.Gaps = comparison.Gaps[:maxReportedGaps]
	}
	return comparison, nil
}

func bestPractice(summaries []Summary, factor string) (Summary, bool) {
	if len(summaries) == 0 {
		return Summary{}, false
	}
	best := summaries[0]
	for _, summary := range summaries[1:] {
		if summary.factorScore(factor) < best.factorScore(factor) {
			best = summary
		}
	}
	return best, true
}
