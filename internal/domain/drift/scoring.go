package drift

import (
	"fmt"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/risk"
)

const staleDays = 90

// score weighs each excess app: 5 points base, +20/+10 for app risk >=75/>=50,
// +15 for admin or owner access, +10 when unused for 90 days or more.
func score(excess []ExcessApp) (int, []string) {
	raw := 0
	var factors []string

	raw += 5 * len(excess)
	if len(excess) > 0 {
		factors = append(factors, fmt.Sprintf("%d app(s) beyond role template", len(excess)))
	}

	highRisk := 0
	admin := 0
	stale := 0
	for _, app := range excess {
		switch {
		case app.AppRiskScore >= 75:
			raw += 20
			highRisk++
		case app.AppRiskScore >= 50:
			raw += 10
			highRisk++
		}
		if app.AccessType == access.TypeAdmin || app.AccessType == access.TypeOwner {
			raw += 15
			admin++
		}
		if app.DaysSinceLastUse >= staleDays {
			raw += 10
			stale++
		}
	}

	if highRisk > 0 {
		factors = append(factors, fmt.Sprintf("%d excess app(s) are high risk", highRisk))
	}
	if admin > 0 {
		factors = append(factors, fmt.Sprintf("%d excess app(s) held with admin or owner access", admin))
	}
	if stale > 0 {
		factors = append(factors, fmt.Sprintf("%d excess app(s) unused for %d+ days", stale, staleDays))
	}

	return risk.Clamp(raw), factors
}

func recommendedAction(level risk.Level, excessCount int) string {
	switch level {
	case risk.LevelCritical, risk.LevelHigh:
		return "Revoke excess access immediately and review the role assignment"
	case risk.LevelMedium:
		return fmt.Sprintf("Review %d excess grant(s) with the user's manager", excessCount)
	default:
		return "Review at the next access certification campaign"
	}
}
