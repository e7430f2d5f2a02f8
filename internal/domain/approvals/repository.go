package approvals

import (
	"context"
	"errors"
	"time"

	"github.com/campusflow/server/internal/audit"
)

var (
	// ErrNotFound indicates the approval id does not exist.
	ErrNotFound = errors.New("approval not found")

	// ErrAlreadyDecided indicates the approval was already approved or
	// rejected. Approval status is write-once.
	ErrAlreadyDecided = errors.New("approval already decided")

	// ErrEventNotFound indicates the approval references an event row
	// that no longer exists.
	ErrEventNotFound = errors.New("event not found")
)

type ApprovalCreateParams struct {
	EventID    string
	ApproverID string
	Role       Role
}

// ApprovalStore persists approval records.
type ApprovalStore interface {
	GetApproval(ctx context.Context, id string) (*Approval, error)
	// FindPendingApproval returns the PENDING approval for the
	// (event, approver) pair, or nil when none exists.
	FindPendingApproval(ctx context.Context, eventID, approverID string) (*Approval, error)
	CreateApproval(ctx context.Context, params ApprovalCreateParams) (*Approval, error)
	// RecordDecision sets status, comments and signed_at on a PENDING
	// approval and returns the updated record.
	RecordDecision(ctx context.Context, id string, status ApprovalStatus, comments string, signedAt time.Time) (*Approval, error)
	CountApprovals(ctx context.Context, eventID string, role Role, status ApprovalStatus) (int, error)
}

// EventStore reads and advances the workflow status of event rows.
type EventStore interface {
	// GetEventForUpdate loads the event row and locks it for the
	// remainder of the transaction, serializing quorum evaluation.
	GetEventForUpdate(ctx context.Context, eventID string) (*Event, error)
	UpdateEventStatus(ctx context.Context, eventID string, status EventStatus) error
}

// Directory looks up active users by institution, role and optionally
// department (HOD approval is department-scoped).
type Directory interface {
	FindActiveUsers(ctx context.Context, institutionID string, role Role, departmentID *string) ([]User, error)
	CountActiveUsers(ctx context.Context, institutionID string, role Role, departmentID *string) (int, error)
}

// InstitutionConfigSource exposes the raw per-institution approval
// configuration blob. Parsing and defaulting happen in the engine.
type InstitutionConfigSource interface {
	ApprovalConfigRaw(ctx context.Context, institutionID string) ([]byte, error)
}

// Tx is the set of collaborators available inside one atomic unit of
// work. The audit sink participates in the transaction: a failed
// append rolls everything back.
type Tx interface {
	ApprovalStore
	EventStore
	Directory
	InstitutionConfigSource
	audit.Sink
}

// Store opens transactions and serves the non-transactional reads the
// API boundary needs (ownership checks, pending listings).
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetApproval(ctx context.Context, id string) (*Approval, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]Approval, error)
}

// Notifier delivers a message to a user, best effort. Implementations
// must never block the caller on delivery and never return failures
// into the workflow path.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}
