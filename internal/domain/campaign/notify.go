package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// SendReminders notifies every reviewer who still has pending items in the
// campaign, one notification per reviewer with their outstanding count.
// Items without a reviewer are skipped here; the timeout auto-approval path
// covers them. Per-reviewer delivery failures are logged, not propagated.
func (s *Service) SendReminders(ctx context.Context, tenantID, campaignID string) (int, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if c.Status != StatusActive {
		return 0, nil
	}

	pending, err := s.pendingByReviewer(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, reviewerID := range sortedKeys(pending) {
		count := len(pending[reviewerID])
		title := fmt.Sprintf("Access review reminder: %s", c.Name)
		body := fmt.Sprintf("You have %d access review item(s) awaiting your decision. The campaign is due %s.",
			count, c.DueDate.Format("2006-01-02"))
		if err := s.Notifier.Notify(ctx, tenantID, reviewerID, "access_review_reminder", title, body); err != nil {
			slog.Warn("reminder delivery failed", "campaignId", campaignID, "reviewerId", reviewerID, "err", err)
			continue
		}
		notified++
	}
	return notified, nil
}

// EscalateOverdueReviews notifies each lagging reviewer's manager about the
// reviewer's outstanding items. minDaysOverdue shifts the escalation
// threshold past the due date; zero escalates as soon as the campaign is
// overdue. Reviewers without a resolvable manager are logged and skipped.
func (s *Service) EscalateOverdueReviews(ctx context.Context, tenantID, campaignID string, minDaysOverdue int) (int, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if minDaysOverdue < 0 {
		minDaysOverdue = 0
	}
	threshold := c.DueDate.AddDate(0, 0, minDaysOverdue)
	if c.Status != StatusActive || !s.Now().After(threshold) {
		return 0, nil
	}

	pending, err := s.pendingByReviewer(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, reviewerID := range sortedKeys(pending) {
		items := pending[reviewerID]
		manager, err := s.Directory.ManagerOf(ctx, tenantID, reviewerID)
		if err != nil {
			slog.Warn("escalation skipped, no manager", "campaignId", campaignID, "reviewerId", reviewerID, "err", err)
			continue
		}
		title := fmt.Sprintf("Overdue access reviews: %s", c.Name)
		body := fmt.Sprintf("%s has %d overdue access review item(s) in campaign %q (due %s).",
			items[0].ReviewerName, len(items), c.Name, c.DueDate.Format("2006-01-02"))
		if err := s.Notifier.Notify(ctx, tenantID, manager.ID, "access_review_escalation", title, body); err != nil {
			slog.Warn("escalation delivery failed", "campaignId", campaignID, "managerId", manager.ID, "err", err)
			continue
		}
		escalated++
	}
	return escalated, nil
}

func (s *Service) pendingByReviewer(ctx context.Context, tenantID, campaignID string) (map[string][]ReviewItem, error) {
	items, err := s.Store.ListReviewItems(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	out := map[string][]ReviewItem{}
	for _, item := range items {
		if item.Decision != DecisionPending || item.ReviewerID == "" {
			continue
		}
		out[item.ReviewerID] = append(out[item.ReviewerID], item)
	}
	return out, nil
}

func sortedKeys(m map[string][]ReviewItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
