package campaign

import (
	"context"
	"fmt"
	"log/slog"

	"accessgov/internal/platform/ids"
	"accessgov/internal/platform/metrics"
)

// SubmitDecision records one reviewer decision. The item moves from pending
// to a terminal decision exactly once; a second submission is rejected rather
// than silently replaced. Revocations are executed inline against the access
// source and the outcome is captured on the item, never retried here.
func (s *Service) SubmitDecision(ctx context.Context, tenantID, itemID, decision, notes, reviewerID, reviewerName string) (ReviewItem, error) {
	switch decision {
	case DecisionApproved, DecisionRevoked, DecisionDeferred:
	default:
		return ReviewItem{}, fmt.Errorf("%w: %q", ErrBadDecision, decision)
	}

	item, err := s.Store.GetReviewItem(ctx, tenantID, itemID)
	if err != nil {
		return ReviewItem{}, err
	}
	if item.Decision != DecisionPending {
		return ReviewItem{}, fmt.Errorf("%w: item %s is already %s", ErrAlreadyDecided, itemID, item.Decision)
	}

	now := s.Now()
	item.Decision = decision
	item.DecisionNotes = notes
	item.ReviewerID = reviewerID
	item.ReviewerName = reviewerName
	item.ReviewedAt = &now

	if decision == DecisionRevoked {
		s.executeRevocation(ctx, tenantID, &item)
	} else {
		// Approval and deferral have nothing to execute.
		item.ExecutionStatus = ExecutionCompleted
	}

	if err := s.Store.UpdateReviewItem(ctx, tenantID, item); err != nil {
		return ReviewItem{}, fmt.Errorf("update review item %s: %w", itemID, err)
	}
	if err := s.appendDecision(ctx, tenantID, item); err != nil {
		return ReviewItem{}, err
	}
	metrics.DecisionsTotal.WithLabelValues(decision).Inc()

	campaign, err := s.Store.GetCampaign(ctx, tenantID, item.CampaignID)
	if err != nil {
		return ReviewItem{}, err
	}
	if err := s.recount(ctx, tenantID, &campaign); err != nil {
		return ReviewItem{}, err
	}
	return item, nil
}

func (s *Service) executeRevocation(ctx context.Context, tenantID string, item *ReviewItem) {
	now := s.Now()
	if err := s.Access.Revoke(ctx, tenantID, item.UserID, item.AppID); err != nil {
		item.ExecutionStatus = ExecutionFailed
		item.ExecutionError = err.Error()
		metrics.RevocationsTotal.WithLabelValues(ExecutionFailed).Inc()
		slog.Warn("revocation failed",
			"itemId", item.ID, "userId", item.UserID, "appId", item.AppID, "err", err)
		return
	}
	item.ExecutionStatus = ExecutionCompleted
	item.ExecutionError = ""
	item.ExecutedAt = &now
	metrics.RevocationsTotal.WithLabelValues(ExecutionCompleted).Inc()
}

func (s *Service) appendDecision(ctx context.Context, tenantID string, item ReviewItem) error {
	d := Decision{
		ID:              ids.New(),
		CampaignID:      item.CampaignID,
		ReviewItemID:    item.ID,
		Decision:        item.Decision,
		Rationale:       item.DecisionNotes,
		ReviewerID:      item.ReviewerID,
		ReviewerName:    item.ReviewerName,
		ExecutionStatus: item.ExecutionStatus,
		CreatedAt:       s.Now(),
	}
	if err := s.Store.AppendDecision(ctx, tenantID, d); err != nil {
		return fmt.Errorf("append decision for item %s: %w", item.ID, err)
	}
	return nil
}

// SubmitBulkDecision applies one decision across many items with per-item
// failure isolation; one bad item never aborts the rest of the batch.
func (s *Service) SubmitBulkDecision(ctx context.Context, tenantID string, bulk BulkDecision) (BulkResult, error) {
	if len(bulk.ItemIDs) == 0 {
		return BulkResult{}, fmt.Errorf("%w: no item ids", ErrValidation)
	}

	result := BulkResult{}
	for _, itemID := range bulk.ItemIDs {
		if _, err := s.SubmitDecision(ctx, tenantID, itemID, bulk.Decision, bulk.Notes, bulk.ReviewerID, bulk.ReviewerName); err != nil {
			result.Failures = append(result.Failures, BulkFailure{ItemID: itemID, Error: err.Error()})
			continue
		}
		result.Applied++
	}
	return result, nil
}

// AutoApprovePendingItems closes out every still-pending item in a campaign
// that opted in to timeout auto-approval. Approvals need no execution, so
// each item lands directly in executionStatus completed, attributed to the
// system reviewer. The job scheduler calls this at the due date.
func (s *Service) AutoApprovePendingItems(ctx context.Context, tenantID, campaignID string) (int, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}
	if !c.AutoApproveOnTimeout || c.Status != StatusActive {
		return 0, nil
	}

	items, err := s.Store.ListReviewItems(ctx, tenantID, campaignID)
	if err != nil {
		return 0, err
	}

	approved := 0
	now := s.Now()
	for _, item := range items {
		if item.Decision != DecisionPending {
			continue
		}
		item.Decision = DecisionApproved
		item.DecisionNotes = "Auto-approved at campaign timeout"
		item.ReviewerID = SystemReviewerID
		item.ReviewerName = "System"
		item.ReviewedAt = &now
		item.ExecutionStatus = ExecutionCompleted

		if err := s.Store.UpdateReviewItem(ctx, tenantID, item); err != nil {
			slog.Warn("auto-approve update failed", "itemId", item.ID, "err", err)
			continue
		}
		if err := s.appendDecision(ctx, tenantID, item); err != nil {
			slog.Warn("auto-approve decision append failed", "itemId", item.ID, "err", err)
			continue
		}
		metrics.DecisionsTotal.WithLabelValues(DecisionApproved).Inc()
		approved++
	}

	if err := s.recount(ctx, tenantID, &c); err != nil {
		return approved, err
	}
	return approved, nil
}
