package overpriv

import (
	"fmt"

	"accessgov/internal/domain/risk"
)

// score weighs admin-app breadth plus staleness, cross-department reach and
// grant age: +40/+30/+20 for >=10/>=7/>=5 admin apps, then +10 per stale,
// +15 per cross-department and +12 per long-running grant.
func score(adminCount, staleCount, crossDeptCount, longRunningCount int) (int, []string) {
	raw := 0
	var factors []string

	switch {
	case adminCount >= 10:
		raw += 40
	case adminCount >= 7:
		raw += 30
	case adminCount >= 5:
		raw += 20
	}
	factors = append(factors, fmt.Sprintf("admin or owner access on %d apps", adminCount))

	if staleCount > 0 {
		raw += 10 * staleCount
		factors = append(factors, fmt.Sprintf("%d admin grant(s) unused for %d+ days", staleCount, staleDays))
	}
	if crossDeptCount > 0 {
		raw += 15 * crossDeptCount
		factors = append(factors, fmt.Sprintf("%d admin grant(s) outside the department's remit", crossDeptCount))
	}
	if longRunningCount > 0 {
		raw += 12 * longRunningCount
		factors = append(factors, fmt.Sprintf("%d admin grant(s) older than %d days", longRunningCount, longRunningDays))
	}

	return risk.Clamp(raw), factors
}

// recommendedAction names the stale admin apps as the downgrade set.
func recommendedAction(r *Result) string {
	if len(r.StaleApps) > 0 {
		return fmt.Sprintf("Downgrade %d stale admin grant(s) to member access", len(r.StaleApps))
	}
	if r.RiskLevel.AtLeast(risk.LevelHigh) {
		return "Move standing admin access to just-in-time elevation"
	}
	return "Require MFA for all admin-level applications"
}
