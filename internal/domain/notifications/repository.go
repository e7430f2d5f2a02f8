package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Severity  approvals.Severity
	IsRead    bool
	CreatedAt time.Time
}

type CreateParams struct {
	UserID   string
	Title    string
	Message  string
	Severity approvals.Severity
}

type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Notification, error)
	// ListForUser returns the user's most recent notifications,
	// newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error)
	// MarkRead is scoped to the owning user so one user cannot touch
	// another's notifications.
	MarkRead(ctx context.Context, id, userID string) error
}
