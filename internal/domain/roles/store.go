package roles

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("role template not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Create(ctx context.Context, tenantID string, t Template) (string, error) {
	appsJSON, err := json.Marshal(t.ExpectedApps)
	if err != nil {
		return "", err
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO role_templates (tenant_id, name, department, level, expected_apps)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id
  `, tenantID, t.Name, t.Department, t.Level, appsJSON).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Get(ctx context.Context, tenantID, templateID string) (Template, error) {
	var t Template
	var appsJSON []byte
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, department, level, expected_apps, user_count, popularity, created_at, updated_at
    FROM role_templates
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID).Scan(&t.ID, &t.Name, &t.Department, &t.Level, &appsJSON, &t.UserCount, &t.Popularity, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, err
	}
	if err := json.Unmarshal(appsJSON, &t.ExpectedApps); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (s *Store) List(ctx context.Context, tenantID string) ([]Template, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, department, level, expected_apps, user_count, popularity, created_at, updated_at
    FROM role_templates
    WHERE tenant_id = $1
    ORDER BY name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		var appsJSON []byte
		if err := rows.Scan(&t.ID, &t.Name, &t.Department, &t.Level, &appsJSON, &t.UserCount, &t.Popularity, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(appsJSON, &t.ExpectedApps); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *Store) Update(ctx context.Context, tenantID string, t Template) error {
	appsJSON, err := json.Marshal(t.ExpectedApps)
	if err != nil {
		return err
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE role_templates
    SET name = $3, department = $4, level = $5, expected_apps = $6, updated_at = now()
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, t.ID, t.Name, t.Department, t.Level, appsJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, tenantID, templateID string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM role_templates WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) IncrementPopularity(ctx context.Context, tenantID, templateID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE role_templates SET popularity = popularity + 1 WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID)
	return err
}

// Assign activates templateID for the user inside one transaction,
// deactivating any prior active assignment so at most one is ever active.
// Template user counts follow the assignment rows.
func (s *Store) Assign(ctx context.Context, tenantID, userID, templateID, assignedBy string) (string, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
    UPDATE role_assignments
    SET active = false, deactivated_at = now()
    WHERE tenant_id = $1 AND user_id = $2 AND active
    RETURNING template_id
  `, tenantID, userID)
	if err != nil {
		return "", err
	}
	var previous []string
	for rows.Next() {
		var prior string
		if err := rows.Scan(&prior); err != nil {
			rows.Close()
			return "", err
		}
		previous = append(previous, prior)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return "", err
	}

	for _, prior := range previous {
		if _, err := tx.Exec(ctx, `
      UPDATE role_templates SET user_count = GREATEST(user_count - 1, 0) WHERE tenant_id = $1 AND id = $2
    `, tenantID, prior); err != nil {
			return "", err
		}
	}

	var assignmentID string
	if err := tx.QueryRow(ctx, `
    INSERT INTO role_assignments (tenant_id, user_id, template_id, active, assigned_by)
    VALUES ($1,$2,$3,true,$4)
    RETURNING id
  `, tenantID, userID, templateID, assignedBy).Scan(&assignmentID); err != nil {
		return "", err
	}

	if _, err := tx.Exec(ctx, `
    UPDATE role_templates SET user_count = user_count + 1 WHERE tenant_id = $1 AND id = $2
  `, tenantID, templateID); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return assignmentID, nil
}

// ActiveAssignment returns the user's single active assignment, if any.
func (s *Store) ActiveAssignment(ctx context.Context, tenantID, userID string) (Assignment, error) {
	var a Assignment
	err := s.DB.QueryRow(ctx, `
    SELECT id, user_id, template_id, active, assigned_by, assigned_at
    FROM role_assignments
    WHERE tenant_id = $1 AND user_id = $2 AND active
  `, tenantID, userID).Scan(&a.ID, &a.UserID, &a.TemplateID, &a.Active, &a.AssignedBy, &a.AssignedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Assignment{}, ErrNotFound
	}
	return a, err
}

// ActiveAssignments lists every (user, template) pair with an active
// assignment, for tenant-wide drift sweeps.
func (s *Store) ActiveAssignments(ctx context.Context, tenantID string) ([]Assignment, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, user_id, template_id, active, assigned_by, assigned_at
    FROM role_assignments
    WHERE tenant_id = $1 AND active
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.UserID, &a.TemplateID, &a.Active, &a.AssignedBy, &a.AssignedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
