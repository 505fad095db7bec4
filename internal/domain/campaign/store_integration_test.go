package campaign_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"accessgov/internal/domain/campaign"
	"accessgov/internal/domain/risk"
	"accessgov/internal/platform/db"
)

func integrationPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := db.Migrate(context.Background(), pool, "../../../migrations"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func createTenant(t *testing.T, pool *pgxpool.Pool) string {
	t.Helper()
	ctx := context.Background()
	var tenantID string
	err := pool.QueryRow(ctx, "INSERT INTO tenants (name) VALUES ($1) RETURNING id", "it-"+uuid.NewString()).Scan(&tenantID)
	if err != nil {
		t.Fatalf("tenant insert: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM decisions WHERE tenant_id = $1", tenantID)
		_, _ = pool.Exec(ctx, "DELETE FROM review_items WHERE tenant_id = $1", tenantID)
		_, _ = pool.Exec(ctx, "DELETE FROM campaigns WHERE tenant_id = $1", tenantID)
		_, _ = pool.Exec(ctx, "DELETE FROM tenants WHERE id = $1", tenantID)
	})
	return tenantID
}

func TestPgStoreCampaignRoundTrip(t *testing.T) {
	pool := integrationPool(t)
	tenantID := createTenant(t, pool)
	store := campaign.NewStore(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	campaignID, err := store.CreateCampaign(ctx, tenantID, campaign.Campaign{
		Name:         "Q3 engineering review",
		CampaignType: "department_review",
		ScopeType:    campaign.ScopeDepartment,
		Scope:        campaign.ScopeConfig{Department: "Engineering"},
		StartDate:    now,
		DueDate:      now.AddDate(0, 0, 14),
		Status:       campaign.StatusDraft,
		CreatedBy:    uuid.NewString(),
		CreatedAt:    now,
	})
	if err != nil {
		t.Fatalf("create campaign: %v", err)
	}

	got, err := store.GetCampaign(ctx, tenantID, campaignID)
	if err != nil {
		t.Fatalf("get campaign: %v", err)
	}
	if got.Status != campaign.StatusDraft || got.Scope.Department != "Engineering" {
		t.Fatalf("unexpected campaign: %+v", got)
	}
	if got.CompletionReportURL != "" || got.CompletedAt != nil {
		t.Fatalf("fresh campaign should have no completion fields: %+v", got)
	}

	itemID, err := store.CreateReviewItem(ctx, tenantID, campaign.ReviewItem{
		CampaignID:      campaignID,
		UserID:          uuid.NewString(),
		UserName:        "Dana Reviewer",
		UserEmail:       "dana@example.com",
		Department:      "Engineering",
		AppID:           uuid.NewString(),
		AppName:         "Prod DB",
		AccessType:      "admin",
		GrantedAt:       now.AddDate(0, -6, 0),
		RiskScore:       80,
		RiskLevel:       risk.LevelCritical,
		Decision:        campaign.DecisionPending,
		ExecutionStatus: campaign.ExecutionPending,
	})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	item, err := store.GetReviewItem(ctx, tenantID, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.Decision != campaign.DecisionPending || item.BusinessJustification != "" {
		t.Fatalf("unexpected item: %+v", item)
	}

	// The system reviewer id is not a UUID; the column has to take it.
	item.ReviewerID = campaign.SystemReviewerID
	item.ReviewerName = "System"
	item.Decision = campaign.DecisionApproved
	item.ExecutionStatus = campaign.ExecutionCompleted
	item.ReviewedAt = &now
	if err := store.UpdateReviewItem(ctx, tenantID, item); err != nil {
		t.Fatalf("update item: %v", err)
	}

	item, err = store.GetReviewItem(ctx, tenantID, itemID)
	if err != nil {
		t.Fatalf("re-get item: %v", err)
	}
	if item.ReviewerID != campaign.SystemReviewerID || item.Decision != campaign.DecisionApproved {
		t.Fatalf("update not persisted: %+v", item)
	}

	if err := store.AppendDecision(ctx, tenantID, campaign.Decision{
		ID:              "it-decision-" + uuid.NewString(),
		CampaignID:      campaignID,
		ReviewItemID:    itemID,
		Decision:        campaign.DecisionApproved,
		ReviewerID:      campaign.SystemReviewerID,
		ReviewerName:    "System",
		ExecutionStatus: campaign.ExecutionCompleted,
		CreatedAt:       now,
	}); err != nil {
		t.Fatalf("append decision: %v", err)
	}

	decisions, err := store.ListDecisions(ctx, tenantID, campaignID)
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(decisions) != 1 || decisions[0].ReviewItemID != itemID {
		t.Fatalf("unexpected decisions: %+v", decisions)
	}

	got.Status = campaign.StatusActive
	got.TotalItems = 1
	got.ReviewedItems = 1
	got.ApprovedItems = 1
	if err := store.UpdateCampaign(ctx, tenantID, got); err != nil {
		t.Fatalf("update campaign: %v", err)
	}

	due, err := store.ActiveDueBefore(ctx, tenantID, now.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("active due before: %v", err)
	}
	if len(due) != 1 || due[0].ID != campaignID {
		t.Fatalf("expected the campaign in the sweep window, got %+v", due)
	}
	if due, err = store.ActiveDueBefore(ctx, tenantID, now.AddDate(0, 0, 7)); err != nil || len(due) != 0 {
		t.Fatalf("expected no campaigns before the due date, got %+v (err %v)", due, err)
	}
}
