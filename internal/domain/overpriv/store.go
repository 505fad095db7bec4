package overpriv

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"accessgov/internal/platform/ids"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) CreateAlert(ctx context.Context, tenantID string, a Alert) (string, error) {
	appsJSON, err := json.Marshal(a.AdminApps)
	if err != nil {
		return "", err
	}
	detailJSON, err := json.Marshal(map[string]any{
		"staleApps":       a.StaleApps,
		"crossDeptApps":   a.CrossDeptApps,
		"longRunningApps": a.LongRunningApps,
		"riskFactors":     a.RiskFactors,
	})
	if err != nil {
		return "", err
	}

	alertID := ids.New()
	_, err = s.DB.Exec(ctx, `
    INSERT INTO overprivileged_alerts (id, tenant_id, user_id, user_name, department, admin_apps,
                                       admin_app_count, detail, risk_score, risk_level,
                                       recommended_action, status, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
  `, alertID, tenantID, a.UserID, a.UserName, a.Department, appsJSON,
		a.AdminAppCount, detailJSON, a.RiskScore, a.RiskLevel,
		a.RecommendedAction, a.Status, a.CreatedAt)
	if err != nil {
		return "", err
	}
	return alertID, nil
}

const alertColumns = `id, user_id, user_name, department, admin_apps, admin_app_count, detail,
  risk_score, risk_level, recommended_action, status,
  COALESCE(remediation_action, ''), COALESCE(remediation_plan, ''),
  COALESCE(remediated_by, ''), remediated_at, created_at`

func (s *Store) GetAlert(ctx context.Context, tenantID, alertID string) (Alert, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+alertColumns+`
    FROM overprivileged_alerts
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, alertID)
	alert, err := scanAlert(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Alert{}, ErrNotFound
	}
	return alert, err
}

func (s *Store) UpdateAlert(ctx context.Context, tenantID string, a Alert) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE overprivileged_alerts
    SET status = $3, remediation_action = $4, remediation_plan = $5, remediated_by = $6, remediated_at = $7
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, a.ID, a.Status, a.RemediationAction, a.RemediationPlan, a.RemediatedBy, a.RemediatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, tenantID, status string) ([]Alert, error) {
	query := "SELECT " + alertColumns + " FROM overprivileged_alerts WHERE tenant_id = $1"
	args := []any{tenantID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY risk_score DESC, created_at DESC"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

// OpenCountByDepartment feeds the department risk aggregator.
func (s *Store) OpenCountByDepartment(ctx context.Context, tenantID, department string) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM overprivileged_alerts
    WHERE tenant_id = $1 AND department = $2 AND status IN ($3, $4)
  `, tenantID, department, StatusOpen, StatusInvestigating).Scan(&count)
	return count, err
}

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	var appsJSON, detailJSON []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Department, &appsJSON, &a.AdminAppCount, &detailJSON,
		&a.RiskScore, &a.RiskLevel, &a.RecommendedAction, &a.Status,
		&a.RemediationAction, &a.RemediationPlan, &a.RemediatedBy, &a.RemediatedAt, &a.CreatedAt); err != nil {
		return Alert{}, err
	}
	if err := json.Unmarshal(appsJSON, &a.AdminApps); err != nil {
		return Alert{}, err
	}
	var detail struct {
		StaleApps       []string `json:"staleApps"`
		CrossDeptApps   []string `json:"crossDeptApps"`
		LongRunningApps []string `json:"longRunningApps"`
		RiskFactors     []string `json:"riskFactors"`
	}
	if err := json.Unmarshal(detailJSON, &detail); err != nil {
		return Alert{}, err
	}
	a.StaleApps = detail.StaleApps
	a.CrossDeptApps = detail.CrossDeptApps
	a.LongRunningApps = detail.LongRunningApps
	a.RiskFactors = detail.RiskFactors
	return a, nil
}
