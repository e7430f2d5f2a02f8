package events

import (
	"context"
	"errors"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
)

var ErrNotFound = errors.New("event not found")

type Event struct {
	ID            string
	Title         string
	Description   string
	Location      string
	StartDate     time.Time
	EndDate       time.Time
	Status        approvals.EventStatus
	OrganizerID   string
	InstitutionID string
	DepartmentID  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     *time.Time
	Attachments   []Attachment
}

type Attachment struct {
	ID        string
	EventID   string
	FileName  string
	FileURL   string
	FileType  string
	CreatedAt time.Time
}

type CreateParams struct {
	Title         string
	Description   string
	Location      string
	StartDate     time.Time
	EndDate       time.Time
	OrganizerID   string
	InstitutionID string
	DepartmentID  string
	Attachments   []AttachmentParams
}

type AttachmentParams struct {
	FileName string
	FileURL  string
	FileType string
}

type UpdateParams struct {
	Title       *string
	Description *string
	Location    *string
	StartDate   *time.Time
	EndDate     *time.Time
}

type Filters struct {
	InstitutionID string
	Status        approvals.EventStatus
	DepartmentID  string
	StartDate     *time.Time
	EndDate       *time.Time
}

type Pagination struct {
	Page  int
	Limit int
}

type ListResult struct {
	Events []Event
	Total  int
	Page   int
	Limit  int
}

// Pages returns the total number of pages for the result's limit.
func (r ListResult) Pages() int {
	if r.Limit <= 0 {
		return 0
	}
	pages := r.Total / r.Limit
	if r.Total%r.Limit != 0 {
		pages++
	}
	return pages
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Event, error)
	// GetByID returns the event with attachments; soft-deleted events
	// are treated as absent.
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, filters Filters, pagination Pagination) (ListResult, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Event, error)
	SoftDelete(ctx context.Context, id string) error
	// Report returns all matching events ordered by start date, without
	// pagination; callers aggregate the result.
	Report(ctx context.Context, filters Filters) ([]Event, error)
}
