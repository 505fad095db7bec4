package deptrisk

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OverprivilegedCounter is the overprivileged-alert store's per-department
// open count.
type OverprivilegedCounter interface {
	OpenCountByDepartment(ctx context.Context, tenantID, department string) (int, error)
}

// DormantCounter is the access store's per-department idle-grant count.
type DormantCounter interface {
	DormantCountByDepartment(ctx context.Context, tenantID, department string, cutoff time.Time) (int, error)
}

// Store supplies the six risk signals. The overprivileged and dormant
// counts delegate to the stores that own those tables; the remaining
// signals read tables no other domain wraps.
type Store struct {
	DB       *pgxpool.Pool
	Overpriv OverprivilegedCounter
	Dormant  DormantCounter
	Now      func() time.Time
}

func NewStore(db *pgxpool.Pool, overpriv OverprivilegedCounter, dormant DormantCounter) *Store {
	return &Store{DB: db, Overpriv: overpriv, Dormant: dormant, Now: time.Now}
}

// CampaignCompliance is the share of review items decided for a department
// across campaigns created in the last 90 days. A department with no recent
// review items is treated as fully compliant.
func (s *Store) CampaignCompliance(ctx context.Context, tenantID, department string) (int, error) {
	cutoff := s.Now().AddDate(0, 0, -90)
	var total, reviewed int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1), COUNT(1) FILTER (WHERE ri.decision <> 'pending')
    FROM review_items ri
    JOIN campaigns c ON c.id = ri.campaign_id AND c.tenant_id = ri.tenant_id
    WHERE ri.tenant_id = $1 AND ri.department = $2 AND c.created_at >= $3
  `, tenantID, department, cutoff).Scan(&total, &reviewed)
	if err != nil {
		return 0, err
	}
	if total == 0 {
		return 100, nil
	}
	return reviewed * 100 / total, nil
}

func (s *Store) OverprivilegedCount(ctx context.Context, tenantID, department string) (int, error) {
	return s.Overpriv.OpenCountByDepartment(ctx, tenantID, department)
}

func (s *Store) OpenSoDViolations(ctx context.Context, tenantID, department string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM sod_violations
    WHERE tenant_id = $1 AND department = $2 AND status = 'open'
  `, tenantID, department).Scan(&count)
	return count, err
}

func (s *Store) DormantGrants(ctx context.Context, tenantID, department string) (int, error) {
	cutoff := s.Now().AddDate(0, 0, -DormantCutoffDays)
	return s.Dormant.DormantCountByDepartment(ctx, tenantID, department, cutoff)
}

func (s *Store) HighRiskOAuthGrants(ctx context.Context, tenantID, department string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM oauth_grants g
    JOIN users u ON u.id = g.user_id AND u.tenant_id = g.tenant_id
    WHERE g.tenant_id = $1 AND u.department = $2
      AND g.risk_level IN ('high', 'critical') AND g.revoked_at IS NULL
  `, tenantID, department).Scan(&count)
	return count, err
}

func (s *Store) RecentAnomalies(ctx context.Context, tenantID, department string) (int, error) {
	cutoff := s.Now().AddDate(0, 0, -AnomalyLookbackDays)
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM anomaly_events e
    JOIN users u ON u.id = e.user_id AND u.tenant_id = e.tenant_id
    WHERE e.tenant_id = $1 AND u.department = $2 AND e.detected_at >= $3
  `, tenantID, department, cutoff).Scan(&count)
	return count, err
}
