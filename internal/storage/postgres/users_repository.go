package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type UserRepository struct {
	db dbtx
}

var (
	_ users.Repository    = (*UserRepository)(nil)
	_ approvals.Directory = (*UserRepository)(nil)
)

const userColumns = `id, name, email, password_hash, role, institution_id,
       COALESCE(department_id::text, ''), is_active, last_login_at, created_at, updated_at`

func scanUser(row pgx.Row) (*users.User, error) {
	var u users.User
	var role string
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.InstitutionID,
		&u.DepartmentID,
		&u.IsActive,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.Role = users.Role(role)
	return &u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*users.User, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE id = $1
`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE lower(email) = lower($1)
`, email)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Create(ctx context.Context, params users.CreateParams) (*users.User, error) {
	var departmentID any
	if params.DepartmentID != "" {
		departmentID = params.DepartmentID
	}

	row := r.db.QueryRow(ctx, `
INSERT INTO users (name, email, password_hash, role, institution_id, department_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+userColumns+`
`, params.Name, params.Email, params.PasswordHash, string(params.Role), params.InstitutionID, departmentID)

	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, users.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) Update(ctx context.Context, id string, params users.UpdateParams) (*users.User, error) {
	var role *string
	if params.Role != nil {
		value := string(*params.Role)
		role = &value
	}
	var departmentID any
	if params.DepartmentID != nil {
		if *params.DepartmentID == "" {
			departmentID = nil
		} else {
			departmentID = *params.DepartmentID
		}
	}

	row := r.db.QueryRow(ctx, `
UPDATE users
   SET name = COALESCE($2, name),
       role = COALESCE($3, role),
       department_id = CASE WHEN $4::boolean THEN $5::uuid ELSE department_id END,
       is_active = COALESCE($6, is_active),
       updated_at = now()
 WHERE id = $1
RETURNING `+userColumns+`
`, id, params.Name, role, params.DepartmentID != nil, departmentID, params.IsActive)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, institutionID string) ([]users.User, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE institution_id = $1
 ORDER BY created_at ASC
`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var items []users.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		items = append(items, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return items, nil
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *UserRepository) FindActive(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	return r.FindActiveUsers(ctx, institutionID, role, departmentID)
}

// FindActiveUsers backs the workflow engine's approver lookups. A nil
// departmentID matches users in any department.
func (r *UserRepository) FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, email
  FROM users
 WHERE institution_id = $1
   AND role = $2
   AND is_active
   AND ($3::uuid IS NULL OR department_id = $3::uuid)
 ORDER BY created_at ASC
`, institutionID, string(role), departmentID)
	if err != nil {
		return nil, fmt.Errorf("find active users: %w", err)
	}
	defer rows.Close()

	var items []approvals.User
	for rows.Next() {
		var u approvals.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active users: %w", err)
	}
	return items, nil
}

func (r *UserRepository) CountActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
SELECT count(*)
  FROM users
 WHERE institution_id = $1
   AND role = $2
   AND is_active
   AND ($3::uuid IS NULL OR department_id = $3::uuid)
`, institutionID, string(role), departmentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return count, nil
}
