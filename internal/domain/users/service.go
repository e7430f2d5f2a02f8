package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusflow/server/internal/auth"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/tenants"
	"github.com/rs/zerolog"
)

var ErrDepartmentMismatch = errors.New("department does not belong to the specified institution")

// Service handles registration, authentication and user management,
// and serves as the directory the workflow engine resolves approvers
// from.
type Service struct {
	repo     Repository
	tenants  tenants.Repository
	notifier approvals.Notifier
	logger   zerolog.Logger
}

func NewService(repo Repository, tenantRepo tenants.Repository, notifier approvals.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		tenants:  tenantRepo,
		notifier: notifier,
		logger:   logger.With().Str("component", "users").Logger(),
	}
}

type RegisterParams struct {
	Name          string
	Email         string
	Password      string
	Role          Role
	InstitutionID string
	DepartmentID  string
}

// Register creates a new active user after validating that the
// department belongs to the institution. New users default to STAFF.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*User, error) {
	institution, err := s.tenants.GetInstitution(ctx, params.InstitutionID)
	if err != nil {
		return nil, err
	}
	department, err := s.tenants.GetDepartment(ctx, params.DepartmentID)
	if err != nil {
		return nil, err
	}
	if department.InstitutionID != institution.ID {
		return nil, ErrDepartmentMismatch
	}

	email := strings.ToLower(strings.TrimSpace(params.Email))
	if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailTaken
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	role := params.Role
	if role == "" {
		role = RoleStaff
	}

	hash, err := auth.HashPassword(params.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Name:          params.Name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		InstitutionID: params.InstitutionID,
		DepartmentID:  params.DepartmentID,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, approvals.Notification{
			UserID:   user.ID,
			Title:    "Welcome to CampusFlow",
			Message:  fmt.Sprintf("Your account at %s (%s) is ready.", institution.Name, department.Name),
			Severity: approvals.SeverityInfo,
		})
	}
	return user, nil
}

// Authenticate verifies credentials and records the login time. It
// returns ErrInvalidCredentials for both unknown emails and wrong
// passwords so callers cannot probe for accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastLogin(ctx, user.ID, time.Now().UTC()); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login time")
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, institutionID string) ([]User, error) {
	return s.repo.List(ctx, institutionID)
}

// Create provisions a user inside the caller's institution without the
// self-service registration checks. Admin surface only.
func (s *Service) Create(ctx context.Context, params RegisterParams) (*User, error) {
	return s.Register(ctx, params)
}

func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*User, error) {
	return s.repo.Update(ctx, id, params)
}

// FindActiveUsers implements the directory lookup used when opening
// first-stage approval requests at event submission.
func (s *Service) FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error) {
	return s.repo.FindActive(ctx, institutionID, role, departmentID)
}
