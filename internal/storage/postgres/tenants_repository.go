package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/tenants"
	"github.com/jackc/pgx/v5"
)

type TenantRepository struct {
	db dbtx
}

var (
	_ tenants.Repository                = (*TenantRepository)(nil)
	_ approvals.InstitutionConfigSource = (*TenantRepository)(nil)
)

func scanInstitution(row pgx.Row) (*tenants.Institution, error) {
	var inst tenants.Institution
	if err := row.Scan(&inst.ID, &inst.Name, &inst.Code, &inst.ApprovalConfig, &inst.CreatedAt); err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *TenantRepository) GetInstitution(ctx context.Context, id string) (*tenants.Institution, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, name, code, approval_config, created_at
  FROM institutions
 WHERE id = $1
`, id)

	inst, err := scanInstitution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenants.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("get institution: %w", err)
	}
	return inst, nil
}

func (r *TenantRepository) GetInstitutionByCode(ctx context.Context, code string) (*tenants.Institution, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, name, code, approval_config, created_at
  FROM institutions
 WHERE code = $1
`, code)

	inst, err := scanInstitution(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenants.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("get institution by code: %w", err)
	}
	return inst, nil
}

func (r *TenantRepository) GetDepartment(ctx context.Context, id string) (*tenants.Department, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, institution_id, name, code, created_at
  FROM departments
 WHERE id = $1
`, id)

	var dept tenants.Department
	if err := row.Scan(&dept.ID, &dept.InstitutionID, &dept.Name, &dept.Code, &dept.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenants.ErrDepartmentNotFound
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &dept, nil
}

func (r *TenantRepository) ListInstitutions(ctx context.Context) ([]tenants.Institution, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, code, approval_config, created_at
  FROM institutions
 ORDER BY name ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	defer rows.Close()

	var items []tenants.Institution
	for rows.Next() {
		inst, err := scanInstitution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan institution: %w", err)
		}
		items = append(items, *inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate institutions: %w", err)
	}
	return items, nil
}

func (r *TenantRepository) ListDepartments(ctx context.Context, institutionID string) ([]tenants.Department, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, institution_id, name, code, created_at
  FROM departments
 WHERE institution_id = $1
 ORDER BY name ASC
`, institutionID)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var items []tenants.Department
	for rows.Next() {
		var dept tenants.Department
		if err := rows.Scan(&dept.ID, &dept.InstitutionID, &dept.Name, &dept.Code, &dept.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		items = append(items, dept)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}
	return items, nil
}

func (r *TenantRepository) UpsertInstitution(ctx context.Context, params tenants.InstitutionCreateParams) (*tenants.Institution, error) {
	config := params.ApprovalConfig
	if len(config) == 0 {
		config = []byte(`{}`)
	}

	row := r.db.QueryRow(ctx, `
INSERT INTO institutions (name, code, approval_config)
VALUES ($1, $2, $3)
ON CONFLICT (code) DO UPDATE
   SET name = EXCLUDED.name, approval_config = EXCLUDED.approval_config
RETURNING id, name, code, approval_config, created_at
`, params.Name, params.Code, config)

	inst, err := scanInstitution(row)
	if err != nil {
		return nil, fmt.Errorf("upsert institution: %w", err)
	}
	return inst, nil
}

func (r *TenantRepository) UpsertDepartment(ctx context.Context, params tenants.DepartmentCreateParams) (*tenants.Department, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO departments (institution_id, name, code)
VALUES ($1, $2, $3)
ON CONFLICT (institution_id, code) DO UPDATE
   SET name = EXCLUDED.name
RETURNING id, institution_id, name, code, created_at
`, params.InstitutionID, params.Name, params.Code)

	var dept tenants.Department
	if err := row.Scan(&dept.ID, &dept.InstitutionID, &dept.Name, &dept.Code, &dept.CreatedAt); err != nil {
		return nil, fmt.Errorf("upsert department: %w", err)
	}
	return &dept, nil
}

// ApprovalConfigRaw returns the institution's configuration blob
// untouched; the workflow engine owns parsing and defaulting.
func (r *TenantRepository) ApprovalConfigRaw(ctx context.Context, institutionID string) ([]byte, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `
SELECT approval_config FROM institutions WHERE id = $1
`, institutionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenants.ErrInstitutionNotFound
		}
		return nil, fmt.Errorf("read approval config: %w", err)
	}
	return raw, nil
}
