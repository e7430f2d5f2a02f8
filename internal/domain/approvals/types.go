package approvals

import (
	"fmt"
	"time"
)

// EventStatus is the workflow state of an event. Statuses are strictly
// ordered along the approval chain; Rejected and Approved are absorbing.
type EventStatus string

const (
	StatusSubmitted   EventStatus = "SUBMITTED"
	StatusHODApproved EventStatus = "HOD_APPROVED"
	StatusHLCApproved EventStatus = "HLC_APPROVED"
	StatusApproved    EventStatus = "APPROVED"
	StatusRejected    EventStatus = "REJECTED"
)

func ParseEventStatus(value string) (EventStatus, error) {
	switch EventStatus(value) {
	case StatusSubmitted, StatusHODApproved, StatusHLCApproved, StatusApproved, StatusRejected:
		return EventStatus(value), nil
	}
	return "", fmt.Errorf("unknown event status %q", value)
}

// Terminal reports whether no further transitions leave this status.
func (s EventStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// rank orders statuses along the approval chain so that transitions
// can be checked for monotonicity. Rejected is terminal but sits
// outside the chain; it is handled separately.
func (s EventStatus) rank() int {
	switch s {
	case StatusSubmitted:
		return 0
	case StatusHODApproved:
		return 1
	case StatusHLCApproved:
		return 2
	case StatusApproved:
		return 3
	}
	return -1
}

// Role is one gate in the approval chain.
type Role string

const (
	RoleHOD        Role = "HOD"
	RoleHLCMember  Role = "HLC_MEMBER"
	RoleManagement Role = "MANAGEMENT"
	RoleAdmin      Role = "ADMIN"
)

func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleHOD, RoleHLCMember, RoleManagement, RoleAdmin:
		return Role(value), nil
	}
	return "", fmt.Errorf("unknown approval role %q", value)
}

// ApprovalStatus is the state of a single approval request.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// Decision is the outcome an approver records on a pending request.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

func ParseDecision(value string) (Decision, error) {
	switch Decision(value) {
	case DecisionApproved, DecisionRejected:
		return Decision(value), nil
	}
	return "", fmt.Errorf("unknown decision %q", value)
}

func (d Decision) approvalStatus() ApprovalStatus {
	if d == DecisionRejected {
		return ApprovalRejected
	}
	return ApprovalApproved
}

// QuorumMode determines how many HLC approvals an institution requires.
type QuorumMode string

const (
	QuorumSingle    QuorumMode = "SINGLE"
	QuorumUnanimous QuorumMode = "UNANIMOUS"
	QuorumMajority  QuorumMode = "MAJORITY"
)

// Approval is one role-gated sign-off request on an event. Status is
// write-once: after a decision is recorded it never changes again.
type Approval struct {
	ID         string
	EventID    string
	ApproverID string
	Role       Role
	Status     ApprovalStatus
	Comments   string
	SignedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Event is the workflow engine's view of an event row. The surrounding
// event-management subsystem owns the full record; the engine only
// reads identity/tenancy fields and advances Status.
type Event struct {
	ID            string
	Title         string
	Status        EventStatus
	OrganizerID   string
	InstitutionID string
	DepartmentID  string
}

// User is a directory lookup result: an active user eligible to
// approve a stage.
type User struct {
	ID    string
	Name  string
	Email string
}

// Severity classifies a notification for display purposes.
type Severity string

const (
	SeverityInfo    Severity = "INFO"
	SeveritySuccess Severity = "SUCCESS"
	SeverityError   Severity = "ERROR"
)

// Notification is an intent to tell a user something happened. Intents
// are collected during a transaction and dispatched only after commit.
type Notification struct {
	UserID   string
	Title    string
	Message  string
	Severity Severity
}
