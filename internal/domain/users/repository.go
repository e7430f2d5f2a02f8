package users

import (
	"context"
	"errors"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Role is a user's position within an institution. The approval roles
// (HOD, HLC_MEMBER, MANAGEMENT, ADMIN) double as gates in the workflow
// chain; FACULTY and STAFF only organize events.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleHOD        Role = "HOD"
	RoleHLCMember  Role = "HLC_MEMBER"
	RoleManagement Role = "MANAGEMENT"
	RoleFaculty    Role = "FACULTY"
	RoleStaff      Role = "STAFF"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleAdmin, RoleHOD, RoleHLCMember, RoleManagement, RoleFaculty, RoleStaff:
		return Role(value), true
	}
	return "", false
}

type User struct {
	ID            string
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	InstitutionID string
	DepartmentID  string
	IsActive      bool
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateParams struct {
	Name          string
	Email         string
	PasswordHash  string
	Role          Role
	InstitutionID string
	DepartmentID  string
}

type UpdateParams struct {
	Name         *string
	Role         *Role
	DepartmentID *string
	IsActive     *bool
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, params CreateParams) (*User, error)
	Update(ctx context.Context, id string, params UpdateParams) (*User, error)
	List(ctx context.Context, institutionID string) ([]User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// FindActive backs the workflow engine's directory lookups.
	FindActive(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error)
}
