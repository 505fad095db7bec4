package drift

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
	excessJSON, err := json.Marshal(a.ExcessApps)
	if err != nil {
		return "", err
	}
	missingJSON, err := json.Marshal(a.MissingApps)
	if err != nil {
		return "", err
	}
	factorsJSON, err := json.Marshal(a.RiskFactors)
	if err != nil {
		return "", err
	}

	alertID := ids.New()
	_, err = s.DB.Exec(ctx, `
    INSERT INTO drift_alerts (id, tenant_id, user_id, user_name, department, template_id, template_name,
                              excess_apps, missing_apps, risk_score, risk_level, risk_factors,
                              recommended_action, status, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
  `, alertID, tenantID, a.UserID, a.UserName, a.Department, a.TemplateID, a.TemplateName,
		excessJSON, missingJSON, a.RiskScore, a.RiskLevel, factorsJSON,
		a.RecommendedAction, a.Status, a.CreatedAt)
	if err != nil {
		return "", err
	}
	return alertID, nil
}

const alertColumns = `id, user_id, user_name, department, template_id, template_name,
  excess_apps, missing_apps, risk_score, risk_level, risk_factors,
  recommended_action, status, COALESCE(resolution, ''), COALESCE(resolution_notes, ''),
  COALESCE(resolved_by, ''), resolved_at, created_at`

func (s *Store) GetAlert(ctx context.Context, tenantID, alertID string) (Alert, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+alertColumns+`
    FROM drift_alerts
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
    UPDATE drift_alerts
    SET status = $3, resolution = $4, resolution_notes = $5, resolved_by = $6, resolved_at = $7
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, a.ID, a.Status, a.Resolution, a.ResolutionNotes, a.ResolvedBy, a.ResolvedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListAlerts(ctx context.Context, tenantID, status string) ([]Alert, error) {
	query := "SELECT " + alertColumns + " FROM drift_alerts WHERE tenant_id = $1"
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

func scanAlert(row pgx.Row) (Alert, error) {
	var a Alert
	var excessJSON, missingJSON, factorsJSON []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.UserName, &a.Department, &a.TemplateID, &a.TemplateName,
		&excessJSON, &missingJSON, &a.RiskScore, &a.RiskLevel, &factorsJSON,
		&a.RecommendedAction, &a.Status, &a.Resolution, &a.ResolutionNotes,
		&a.ResolvedBy, &a.ResolvedAt, &a.CreatedAt); err != nil {
		return Alert{}, err
	}
	if err := json.Unmarshal(excessJSON, &a.ExcessApps); err != nil {
		return Alert{}, err
	}
	if err := json.Unmarshal(missingJSON, &a.MissingApps); err != nil {
		return Alert{}, err
	}
	if err := json.Unmarshal(factorsJSON, &a.RiskFactors); err != nil {
		return Alert{}, err
	}
	return a, nil
}
