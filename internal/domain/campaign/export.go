package campaign

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"
	"time"
)

var exportHeader = []string{
	"item_id", "user_name", "user_email", "department",
	"app_name", "access_type", "granted_date", "last_used_date", "days_since_last_use",
	"risk_level", "risk_score", "reviewer_name", "decision", "decision_notes",
	"execution_status", "reviewed_at",
}

// ExportCSV renders every review item of a campaign as RFC 4180 CSV. Fields
// containing commas, quotes or newlines are quoted with internal quotes
// doubled, so a standard parser round-trips decision notes exactly.
func (s *Service) ExportCSV(ctx context.Context, tenantID, campaignID string) ([]byte, error) {
	if _, err := s.Store.GetCampaign(ctx, tenantID, campaignID); err != nil {
		return nil, err
	}
	items, err := s.Store.ListReviewItems(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, item := range items {
		record := []string{
			item.ID,
			item.UserName,
			item.UserEmail,
			item.Department,
			item.AppName,
			item.AccessType,
			item.GrantedAt.Format("2006-01-02"),
			formatOptionalDate(item.LastUsedAt),
			strconv.Itoa(item.DaysSinceLastUse),
			string(item.RiskLevel),
			strconv.Itoa(item.RiskScore),
			item.ReviewerName,
			item.Decision,
			item.DecisionNotes,
			item.ExecutionStatus,
			formatOptionalTime(item.ReviewedAt),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
