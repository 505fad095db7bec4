package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"accessgov/internal/platform/ids"
)

type PgStore struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{DB: db}
}

func (s *PgStore) CreateCampaign(ctx context.Context, tenantID string, c Campaign) (string, error) {
	scopeJSON, err := json.Marshal(c.Scope)
	if err != nil {
		return "", err
	}

	campaignID := ids.New()
	_, err = s.DB.Exec(ctx, `
    INSERT INTO campaigns (id, tenant_id, name, campaign_type, scope_type, scope_config,
                           start_date, due_date, auto_approve_on_timeout, status,
                           total_items, reviewed_items, approved_items, revoked_items, deferred_items,
                           created_by, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
  `, campaignID, tenantID, c.Name, c.CampaignType, c.ScopeType, scopeJSON,
		c.StartDate, c.DueDate, c.AutoApproveOnTimeout, c.Status,
		c.TotalItems, c.ReviewedItems, c.ApprovedItems, c.RevokedItems, c.DeferredItems,
		c.CreatedBy, c.CreatedAt)
	if err != nil {
		return "", err
	}
	return campaignID, nil
}

const campaignColumns = `id, name, campaign_type, scope_type, scope_config,
  start_date, due_date, auto_approve_on_timeout, status,
  total_items, reviewed_items, approved_items, revoked_items, deferred_items,
  created_by, created_at, completed_at, COALESCE(completion_report_url, '')`

func (s *PgStore) GetCampaign(ctx context.Context, tenantID, campaignID string) (Campaign, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+campaignColumns+`
    FROM campaigns
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, campaignID)
	c, err := scanCampaign(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Campaign{}, ErrNotFound
	}
	return c, err
}

func (s *PgStore) UpdateCampaign(ctx context.Context, tenantID string, c Campaign) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE campaigns
    SET status = $3, total_items = $4, reviewed_items = $5, approved_items = $6,
        revoked_items = $7, deferred_items = $8, completed_at = $9, completion_report_url = $10
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, c.ID, c.Status, c.TotalItems, c.ReviewedItems, c.ApprovedItems,
		c.RevokedItems, c.DeferredItems, c.CompletedAt, c.CompletionReportURL)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ListCampaigns(ctx context.Context, tenantID, status string) ([]Campaign, error) {
	query := "SELECT " + campaignColumns + " FROM campaigns WHERE tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	var scopeJSON []byte
	if err := row.Scan(&c.ID, &c.Name, &c.CampaignType, &c.ScopeType, &scopeJSON,
		&c.StartDate, &c.DueDate, &c.AutoApproveOnTimeout, &c.Status,
		&c.TotalItems, &c.ReviewedItems, &c.ApprovedItems, &c.RevokedItems, &c.DeferredItems,
		&c.CreatedBy, &c.CreatedAt, &c.CompletedAt, &c.CompletionReportURL); err != nil {
		return Campaign{}, err
	}
	if err := json.Unmarshal(scopeJSON, &c.Scope); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

func (s *PgStore) CreateReviewItem(ctx context.Context, tenantID string, item ReviewItem) (string, error) {
	itemID := ids.New()
	_, err := s.DB.Exec(ctx, `
    INSERT INTO review_items (id, tenant_id, campaign_id, user_id, user_name, user_email, department,
                              app_id, app_name, access_type, granted_at, last_used_at, days_since_last_use,
                              business_justification, risk_score, risk_level, reviewer_id, reviewer_name,
                              decision, execution_status)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
  `, itemID, tenantID, item.CampaignID, item.UserID, item.UserName, item.UserEmail, item.Department,
		item.AppID, item.AppName, item.AccessType, item.GrantedAt, item.LastUsedAt, item.DaysSinceLastUse,
		item.BusinessJustification, item.RiskScore, item.RiskLevel, item.ReviewerID, item.ReviewerName,
		item.Decision, item.ExecutionStatus)
	if err != nil {
		return "", err
	}
	return itemID, nil
}

const itemColumns = `id, campaign_id, user_id, user_name, user_email, department,
  app_id, app_name, access_type, granted_at, last_used_at, days_since_last_use,
  COALESCE(business_justification, ''), risk_score, risk_level,
  COALESCE(reviewer_id, ''), COALESCE(reviewer_name, ''),
  decision, COALESCE(decision_notes, ''), execution_status, COALESCE(execution_error, ''),
  reviewed_at, executed_at`

func (s *PgStore) GetReviewItem(ctx context.Context, tenantID, itemID string) (ReviewItem, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+itemColumns+`
    FROM review_items
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, itemID)
	item, err := scanReviewItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ReviewItem{}, ErrNotFound
	}
	return item, err
}

func (s *PgStore) UpdateReviewItem(ctx context.Context, tenantID string, item ReviewItem) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE review_items
    SET reviewer_id = $3, reviewer_name = $4, decision = $5, decision_notes = $6,
        execution_status = $7, execution_error = $8, reviewed_at = $9, executed_at = $10
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, item.ID, item.ReviewerID, item.ReviewerName, item.Decision, item.DecisionNotes,
		item.ExecutionStatus, item.ExecutionError, item.ReviewedAt, item.ExecutedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) ListReviewItems(ctx context.Context, tenantID, campaignID string) ([]ReviewItem, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+itemColumns+`
    FROM review_items
    WHERE tenant_id = $1 AND campaign_id = $2
    ORDER BY risk_score DESC, id
  `, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanReviewItem(row pgx.Row) (ReviewItem, error) {
	var item ReviewItem
	if err := row.Scan(&item.ID, &item.CampaignID, &item.UserID, &item.UserName, &item.UserEmail, &item.Department,
		&item.AppID, &item.AppName, &item.AccessType, &item.GrantedAt, &item.LastUsedAt, &item.DaysSinceLastUse,
		&item.BusinessJustification, &item.RiskScore, &item.RiskLevel,
		&item.ReviewerID, &item.ReviewerName,
		&item.Decision, &item.DecisionNotes, &item.ExecutionStatus, &item.ExecutionError,
		&item.ReviewedAt, &item.ExecutedAt); err != nil {
		return ReviewItem{}, err
	}
	return item, nil
}

// AppendDecision is insert-only. Decisions have no update or delete path.
func (s *PgStore) AppendDecision(ctx context.Context, tenantID string, d Decision) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO decisions (id, tenant_id, campaign_id, review_item_id, decision, rationale,
                           reviewer_id, reviewer_name, reviewer_email, execution_status, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
  `, d.ID, tenantID, d.CampaignID, d.ReviewItemID, d.Decision, d.Rationale,
		d.ReviewerID, d.ReviewerName, d.ReviewerEmail, d.ExecutionStatus, d.CreatedAt)
	return err
}

func (s *PgStore) ListDecisions(ctx context.Context, tenantID, campaignID string) ([]Decision, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, campaign_id, review_item_id, decision, COALESCE(rationale, ''),
           reviewer_id, reviewer_name, COALESCE(reviewer_email, ''), execution_status, created_at
    FROM decisions
    WHERE tenant_id = $1 AND campaign_id = $2
    ORDER BY created_at, id
  `, tenantID, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.CampaignID, &d.ReviewItemID, &d.Decision, &d.Rationale,
			&d.ReviewerID, &d.ReviewerName, &d.ReviewerEmail, &d.ExecutionStatus, &d.CreatedAt); err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// ActiveDueBefore lists active campaigns due before the cutoff; the job
// scheduler sweeps these for reminders, escalation and auto-approval.
func (s *PgStore) ActiveDueBefore(ctx context.Context, tenantID string, cutoff time.Time) ([]Campaign, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+campaignColumns+`
    FROM campaigns
    WHERE tenant_id = $1 AND status = $2 AND due_date <= $3
    ORDER BY due_date
  `, tenantID, StatusActive, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}
