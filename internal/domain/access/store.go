package access

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("access grant not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

const grantColumns = `user_id, app_id, access_type, granted_at, last_access_at, COALESCE(business_justification, '')`

func (s *Store) ListAll(ctx context.Context, tenantID string) ([]Grant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+grantColumns+`
    FROM user_app_access
    WHERE tenant_id = $1 AND revoked_at IS NULL
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *Store) ListForUser(ctx context.Context, tenantID, userID string) ([]Grant, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT `+grantColumns+`
    FROM user_app_access
    WHERE tenant_id = $1 AND user_id = $2 AND revoked_at IS NULL
  `, tenantID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGrants(rows)
}

func (s *Store) Revoke(ctx context.Context, tenantID, userID, appID string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE user_app_access
    SET revoked_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND app_id = $3 AND revoked_at IS NULL
  `, tenantID, userID, appID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAccessType(ctx context.Context, tenantID, userID, appID, newType string) error {
	tag, err := s.DB.Exec(ctx, `
    UPDATE user_app_access
    SET access_type = $4, updated_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND app_id = $3 AND revoked_at IS NULL
  `, tenantID, userID, appID, newType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DormantCountByDepartment counts grants idle since before the cutoff,
// grouped by the holder's department.
func (s *Store) DormantCountByDepartment(ctx context.Context, tenantID, department string, cutoff time.Time) (int, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM user_app_access a
    JOIN users u ON a.user_id = u.id AND a.tenant_id = u.tenant_id
    WHERE a.tenant_id = $1 AND u.department = $2 AND a.revoked_at IS NULL
      AND COALESCE(a.last_access_at, a.granted_at) < $3
  `, tenantID, department, cutoff).Scan(&count)
	return count, err
}

func scanGrants(rows pgx.Rows) ([]Grant, error) {
	var grants []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.UserID, &g.AppID, &g.AccessType, &g.GrantedAt, &g.LastAccessAt, &g.BusinessJustification); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}
