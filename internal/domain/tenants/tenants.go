// Package tenants models the isolation boundary of the system:
// institutions and their departments. Users, events and approval
// configuration all hang off an institution.
package tenants

import (
	"context"
	"errors"
	"time"
)

var (
	ErrInstitutionNotFound = errors.New("institution not found")
	ErrDepartmentNotFound  = errors.New("department not found")
)

type Institution struct {
	ID   string
	Name string
	Code string
	// ApprovalConfig is the raw per-institution configuration blob.
	// The workflow engine parses it into a typed value at read time.
	ApprovalConfig []byte
	CreatedAt      time.Time
}

type Department struct {
	ID            string
	InstitutionID string
	Name          string
	Code          string
	CreatedAt     time.Time
}

type InstitutionCreateParams struct {
	Name           string
	Code           string
	ApprovalConfig []byte
}

type DepartmentCreateParams struct {
	InstitutionID string
	Name          string
	Code          string
}

type Repository interface {
	GetInstitution(ctx context.Context, id string) (*Institution, error)
	GetInstitutionByCode(ctx context.Context, code string) (*Institution, error)
	GetDepartment(ctx context.Context, id string) (*Department, error)
	ListInstitutions(ctx context.Context) ([]Institution, error)
	ListDepartments(ctx context.Context, institutionID string) ([]Department, error)
	// UpsertInstitution and UpsertDepartment key on code; the seed
	// command relies on them being safe to run repeatedly.
	UpsertInstitution(ctx context.Context, params InstitutionCreateParams) (*Institution, error)
	UpsertDepartment(ctx context.Context, params DepartmentCreateParams) (*Department, error)
}
