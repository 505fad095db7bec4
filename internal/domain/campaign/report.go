package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"accessgov/internal/platform/events"
)

// CompleteCampaign closes the campaign: it builds the completion report,
// writes the PDF artifact, records the report reference and transitions the
// campaign to completed. Completing an already-completed campaign is
// rejected so the report of record is generated exactly once.
func (s *Service) CompleteCampaign(ctx context.Context, tenantID, campaignID string) (CompletionReport, error) {
	c, err := s.Store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		return CompletionReport{}, err
	}
	if c.Status == StatusCompleted {
		return CompletionReport{}, ErrAlreadyCompleted
	}

	if err := s.recount(ctx, tenantID, &c); err != nil {
		return CompletionReport{}, err
	}
	decisions, err := s.Store.ListDecisions(ctx, tenantID, campaignID)
	if err != nil {
		return CompletionReport{}, err
	}
	items, err := s.Store.ListReviewItems(ctx, tenantID, campaignID)
	if err != nil {
		return CompletionReport{}, err
	}

	now := s.Now()
	report := CompletionReport{
		CampaignID:    c.ID,
		CampaignName:  c.Name,
		CompletedAt:   now,
		TotalItems:    c.TotalItems,
		ReviewedItems: c.ReviewedItems,
		ApprovedItems: c.ApprovedItems,
		RevokedItems:  c.RevokedItems,
		DeferredItems: c.DeferredItems,
		PendingItems:  c.TotalItems - c.ReviewedItems,
		Decisions:     decisions,
	}

	reviewers := map[string]bool{}
	for _, d := range decisions {
		if d.ReviewerID != "" {
			reviewers[d.ReviewerID] = true
		}
	}
	report.UniqueReviewers = len(reviewers)

	executed := 0
	for _, item := range items {
		if item.Decision == DecisionRevoked && item.ExecutionStatus == ExecutionCompleted {
			executed++
		}
	}
	if c.RevokedItems > 0 {
		report.ExecutionSuccessRate = float64(executed) / float64(c.RevokedItems)
	}

	// The PDF is an artifact of the report, not its source of truth; a write
	// failure leaves the reference empty and the completion still stands.
	if url, err := s.writeReportPDF(c, report); err != nil {
		slog.Warn("completion report pdf failed", "campaignId", c.ID, "err", err)
	} else {
		report.ReportURL = url
	}

	c.Status = StatusCompleted
	c.CompletedAt = &now
	c.CompletionReportURL = report.ReportURL
	if err := s.Store.UpdateCampaign(ctx, tenantID, c); err != nil {
		return CompletionReport{}, fmt.Errorf("complete campaign %s: %w", campaignID, err)
	}

	if s.Events != nil {
		s.Events.Emit(ctx, events.AccessReviewCompleted, map[string]any{
			"tenantId":      tenantID,
			"campaignId":    c.ID,
			"campaignName":  c.Name,
			"totalItems":    c.TotalItems,
			"reviewedItems": c.ReviewedItems,
			"revokedItems":  c.RevokedItems,
		})
	}
	return report, nil
}

func (s *Service) writeReportPDF(c Campaign, report CompletionReport) (string, error) {
	dir := s.ReportDir
	if dir == "" {
		dir = "storage/reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	filePath := filepath.Join(dir, c.ID+".pdf")

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Access Review Completion Report")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Campaign: %s", c.Name))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Completed: %s", report.CompletedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)
	pdf.Cell(0, 8, fmt.Sprintf("Items: %d total, %d reviewed, %d pending", report.TotalItems, report.ReviewedItems, report.PendingItems))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Decisions: %d approved, %d revoked, %d deferred", report.ApprovedItems, report.RevokedItems, report.DeferredItems))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Unique reviewers: %d", report.UniqueReviewers))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Revocation execution success rate: %.0f%%", report.ExecutionSuccessRate*100))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Decision log")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 9)
	for _, d := range report.Decisions {
		line := fmt.Sprintf("%s  %s  %s by %s", d.CreatedAt.Format("2006-01-02"), d.ReviewItemID, d.Decision, d.ReviewerName)
		pdf.Cell(0, 5, line)
		pdf.Ln(5)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", err
	}
	return filePath, nil
}
