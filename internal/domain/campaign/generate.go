package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/directory"
	"accessgov/internal/domain/risk"
)

// GenerateReviewItems resolves the campaign scope to a concrete set of access
// grants and creates one review item per grant. Re-running generation never
// duplicates items for grants that already have one, so totalItems is stable
// across calls. Generation transitions a draft campaign to active.
func (s *Service) GenerateReviewItems(ctx context.Context, tenantID, campaignID string) (GenerateSummary, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return GenerateSummary{}, err
	}
	if c.Status == StatusCompleted {
		return GenerateSummary{}, ErrInvalidState
	}

	grants, err := s.resolveScope(ctx, tenantID, c)
	if err != nil {
		return GenerateSummary{}, fmt.Errorf("resolve scope for campaign %s: %w", campaignID, err)
	}

	existing, err := s.Store.ListReviewItems(ctx, tenantID, campaignID)
	if err != nil {
		return GenerateSummary{}, err
	}
	seen := make(map[string]bool, len(existing))
	for _, item := range existing {
		seen[item.UserID+"\x00"+item.AppID] = true
	}

	summary := GenerateSummary{CampaignID: campaignID}
	userCache := map[string]*directory.User{}
	appCache := map[string]*directory.App{}
	now := s.Now()

	for _, g := range grants {
		if seen[g.UserID+"\x00"+g.AppID] {
			continue
		}

		user := s.cachedUser(ctx, tenantID, g.UserID, userCache)
		app := s.cachedApp(ctx, tenantID, g.AppID, appCache)
		if user == nil || app == nil {
			slog.Warn("review item skipped, unresolvable grant",
				"campaignId", campaignID, "userId", g.UserID, "appId", g.AppID)
			summary.Skipped++
			continue
		}

		item := ReviewItem{
			CampaignID:            campaignID,
			UserID:                user.ID,
			UserName:              user.FullName(),
			UserEmail:             user.Email,
			Department:            user.Department,
			AppID:                 app.ID,
			AppName:               app.Name,
			AccessType:            g.AccessType,
			GrantedAt:             g.GrantedAt,
			LastUsedAt:            g.LastAccessAt,
			DaysSinceLastUse:      g.DaysSinceLastUse(now),
			BusinessJustification: g.BusinessJustification,
			Decision:              DecisionPending,
			ExecutionStatus:       ExecutionPending,
		}
		item.RiskScore = itemRisk(g, app.RiskScore, item.DaysSinceLastUse)
		item.RiskLevel = risk.LevelFor(item.RiskScore)

		if manager, err := s.Directory.ManagerOf(ctx, tenantID, user.ID); err == nil {
			item.ReviewerID = manager.ID
			item.ReviewerName = manager.FullName()
		}

		if _, err := s.Store.CreateReviewItem(ctx, tenantID, item); err != nil {
			return summary, fmt.Errorf("persist review item for %s/%s: %w", g.UserID, g.AppID, err)
		}
		seen[g.UserID+"\x00"+g.AppID] = true
		summary.ItemsCreated++
	}

	if err := s.recount(ctx, tenantID, &c); err != nil {
		return summary, err
	}
	if c.Status == StatusDraft {
		c.Status = StatusActive
		if err := s.Store.UpdateCampaign(ctx, tenantID, c); err != nil {
			return summary, err
		}
	}
	summary.TotalItems = c.TotalItems
	return summary, nil
}

func (s *Service) resolveScope(ctx context.Context, tenantID string, c Campaign) ([]access.Grant, error) {
	switch c.ScopeType {
	case ScopeAll:
		return s.Access.ListAll(ctx, tenantID)

	case ScopeDepartment:
		all, err := s.Access.ListAll(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		cache := map[string]*directory.User{}
		var out []access.Grant
		for _, g := range all {
			user := s.cachedUser(ctx, tenantID, g.UserID, cache)
			if user != nil && strings.EqualFold(user.Department, c.Scope.Department) {
				out = append(out, g)
			}
		}
		return out, nil

	case ScopeApps:
		all, err := s.Access.ListAll(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		wanted := make(map[string]bool, len(c.Scope.AppIDs))
		for _, id := range c.Scope.AppIDs {
			wanted[id] = true
		}
		var out []access.Grant
		for _, g := range all {
			if wanted[g.AppID] {
				out = append(out, g)
			}
		}
		return out, nil

	case ScopeUsers:
		var out []access.Grant
		for _, userID := range c.Scope.UserIDs {
			grants, err := s.Access.ListForUser(ctx, tenantID, userID)
			if err != nil {
				return nil, err
			}
			out = append(out, grants...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: unknown scope type %q", ErrValidation, c.ScopeType)
}

// cachedUser memoizes directory lookups for a single generation pass. A nil
// entry records a failed lookup so it is not retried per grant.
func (s *Service) cachedUser(ctx context.Context, tenantID, userID string, cache map[string]*directory.User) *directory.User {
	if u, ok := cache[userID]; ok {
		return u
	}
	u, err := s.Directory.User(ctx, tenantID, userID)
	if err != nil {
		cache[userID] = nil
		return nil
	}
	cache[userID] = &u
	return &u
}

func (s *Service) cachedApp(ctx context.Context, tenantID, appID string, cache map[string]*directory.App) *directory.App {
	if a, ok := cache[appID]; ok {
		return a
	}
	a, err := s.Directory.App(ctx, tenantID, appID)
	if err != nil {
		cache[appID] = nil
		return nil
	}
	cache[appID] = &a
	return &a
}

// itemRisk scores one grant for review prioritisation: +25 for admin or owner
// access, tiered app inherent risk (+30/+20/+10 at >=75/>=50/>=25), tiered
// disuse (+30/+20/+10 at >=180/>=90/>=30 days) and +10 when no business
// justification is on file.
func itemRisk(g access.Grant, appRiskScore, daysSinceLastUse int) int {
	raw := 0
	if g.IsAdminLevel() {
		raw += 25
	}
	switch {
	case appRiskScore >= 75:
		raw += 30
	case appRiskScore >= 50:
		raw += 20
	case appRiskScore >= 25:
		raw += 10
	}
	switch {
	case daysSinceLastUse >= 180:
		raw += 30
	case daysSinceLastUse >= 90:
		raw += 20
	case daysSinceLastUse >= 30:
		raw += 10
	}
	if strings.TrimSpace(g.BusinessJustification) == "" {
		raw += 10
	}
	return risk.Clamp(raw)
}
