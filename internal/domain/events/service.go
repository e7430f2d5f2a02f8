package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/sanitize"
	"github.com/rs/zerolog"
)

// ValidationError reports user-correctable input problems.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Directory finds the active users who can gate an approval stage. It
// is served by the users subsystem.
type Directory interface {
	FindActiveUsers(ctx context.Context, institutionID string, role approvals.Role, departmentID *string) ([]approvals.User, error)
}

// Service owns the event lifecycle around the workflow engine: submit,
// read, update, soft delete and reporting. The engine owns everything
// that touches Event.Status after submission.
type Service struct {
	repo      Repository
	engine    *approvals.Engine
	directory Directory
	logger    zerolog.Logger
}

func NewService(repo Repository, engine *approvals.Engine, directory Directory, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		engine:    engine,
		directory: directory,
		logger:    logger.With().Str("component", "events").Logger(),
	}
}

// Submit creates a new event in SUBMITTED status and opens the
// first-stage approval request for the department's head. When the
// department has no active HOD, the event is created anyway and the
// chain stalls until one is provisioned.
func (s *Service) Submit(ctx context.Context, params CreateParams) (*Event, error) {
	if err := validateSubmission(&params); err != nil {
		return nil, err
	}

	event, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	hods, err := s.directory.FindActiveUsers(ctx, event.InstitutionID, approvals.RoleHOD, &event.DepartmentID)
	if err != nil {
		return nil, fmt.Errorf("find department hod: %w", err)
	}
	if len(hods) == 0 {
		s.logger.Warn().
			Str("event_id", event.ID).
			Str("department_id", event.DepartmentID).
			Msg("no active HOD for department, approval chain stalled at submission")
		return event, nil
	}

	if _, err := s.engine.CreateApprovalRequest(ctx, event.ID, hods[0].ID, approvals.RoleHOD); err != nil {
		return nil, fmt.Errorf("open first-stage approval: %w", err)
	}
	return event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error) {
	if pagination.Page < 1 {
		pagination.Page = 1
	}
	if pagination.Limit < 1 || pagination.Limit > 100 {
		pagination.Limit = 10
	}
	return s.repo.List(ctx, filters, pagination)
}

// Update changes descriptive fields only. Status is off limits here;
// it moves exclusively through the workflow engine.
func (s *Service) Update(ctx context.Context, id string, params UpdateParams) (*Event, error) {
	if params.Title != nil {
		title := sanitize.Text(strings.TrimSpace(*params.Title))
		if title == "" {
			return nil, ValidationError{Field: "title", Message: "must not be empty"}
		}
		params.Title = &title
	}
	if params.Description != nil {
		description := sanitize.HTML(*params.Description)
		params.Description = &description
	}
	if params.StartDate != nil && params.EndDate != nil && params.EndDate.Before(*params.StartDate) {
		return nil, ValidationError{Field: "endDate", Message: "must be on or after startDate"}
	}
	return s.repo.Update(ctx, id, params)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.SoftDelete(ctx, id)
}

// ReportResult pairs the matching events with per-status counts.
type ReportResult struct {
	Events       []Event
	TotalEvents  int
	StatusCounts map[approvals.EventStatus]int
}

func (s *Service) Report(ctx context.Context, filters Filters) (ReportResult, error) {
	matched, err := s.repo.Report(ctx, filters)
	if err != nil {
		return ReportResult{}, fmt.Errorf("event report: %w", err)
	}

	counts := make(map[approvals.EventStatus]int)
	for _, event := range matched {
		counts[event.Status]++
	}
	return ReportResult{
		Events:       matched,
		TotalEvents:  len(matched),
		StatusCounts: counts,
	}, nil
}

func validateSubmission(params *CreateParams) error {
	params.Title = sanitize.Text(strings.TrimSpace(params.Title))
	params.Description = sanitize.HTML(params.Description)
	params.Location = sanitize.Text(strings.TrimSpace(params.Location))

	if params.Title == "" {
		return ValidationError{Field: "title", Message: "must not be empty"}
	}
	if params.OrganizerID == "" {
		return ValidationError{Field: "organizerId", Message: "must not be empty"}
	}
	if params.InstitutionID == "" {
		return ValidationError{Field: "institutionId", Message: "must not be empty"}
	}
	if params.DepartmentID == "" {
		return ValidationError{Field: "departmentId", Message: "user must belong to a department to create an event"}
	}
	if params.StartDate.IsZero() || params.EndDate.IsZero() {
		return ValidationError{Field: "startDate", Message: "start and end dates are required"}
	}
	if params.EndDate.Before(params.StartDate) {
		return ValidationError{Field: "endDate", Message: "must be on or after startDate"}
	}
	return nil
}
