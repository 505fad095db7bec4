package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("directory record not found")

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) User(ctx context.Context, tenantID, userID string) (User, error) {
	var u User
	err := s.DB.QueryRow(ctx, `
    SELECT id, email, username, first_name, last_name, department, COALESCE(manager_id::text, ''), active, created_at
    FROM users
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, userID).Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Department, &u.ManagerID, &u.Active, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *Store) Users(ctx context.Context, tenantID string) ([]User, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, email, username, first_name, last_name, department, COALESCE(manager_id::text, ''), active, created_at
    FROM users
    WHERE tenant_id = $1
    ORDER BY last_name, first_name
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.FirstName, &u.LastName, &u.Department, &u.ManagerID, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ManagerOf resolves the manager back-reference lazily; callers must not
// cache the result across requests.
func (s *Store) ManagerOf(ctx context.Context, tenantID, userID string) (User, error) {
	u, err := s.User(ctx, tenantID, userID)
	if err != nil {
		return User{}, err
	}
	if u.ManagerID == "" {
		return User{}, ErrNotFound
	}
	return s.User(ctx, tenantID, u.ManagerID)
}

func (s *Store) App(ctx context.Context, tenantID, appID string) (App, error) {
	var a App
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, category, risk_score, created_at
    FROM apps
    WHERE tenant_id = $1 AND id = $2
  `, tenantID, appID).Scan(&a.ID, &a.Name, &a.Category, &a.RiskScore, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return App{}, ErrNotFound
	}
	return a, err
}

func (s *Store) Departments(ctx context.Context, tenantID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT DISTINCT department
    FROM users
    WHERE tenant_id = $1 AND department <> ''
    ORDER BY department
  `, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dept string
		if err := rows.Scan(&dept); err != nil {
			return nil, err
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}
