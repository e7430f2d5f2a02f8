package approvals

import (
	"context"
	"fmt"

	"github.com/campusflow/server/internal/metrics"
)

// assignNextApprovers finds the active users gating the next stage and
// opens an approval request for each of them. HOD approval is scoped
// to the event's department; the other roles are institution-wide.
//
// Zero matches is not an error: the chain stalls at the stage just
// reached and stays there until an eligible user is provisioned. The
// stall is surfaced only through the warning log and metric.
func (e *Engine) assignNextApprovers(ctx context.Context, tx Tx, event *Event, role Role, intents *[]Notification) error {
	var departmentID *string
	if role == RoleHOD {
		departmentID = &event.DepartmentID
	}

	approvers, err := tx.FindActiveUsers(ctx, event.InstitutionID, role, departmentID)
	if err != nil {
		return fmt.Errorf("find approvers for role %s: %w", role, err)
	}

	if len(approvers) == 0 {
		e.logger.Warn().
			Str("event_id", event.ID).
			Str("institution_id", event.InstitutionID).
			Str("role", string(role)).
			Msg("no active approvers found, approval chain stalled")
		metrics.WorkflowStalledChains.WithLabelValues(string(role)).Inc()
		return nil
	}

	for _, approver := range approvers {
		if _, err := openRequest(ctx, tx, event.ID, approver.ID, role); err != nil {
			return err
		}
		*intents = append(*intents, Notification{
			UserID:   approver.ID,
			Title:    "New Approval Request",
			Message:  fmt.Sprintf("You have a new event approval request: %q", event.Title),
			Severity: SeverityInfo,
		})
	}

	e.logger.Info().
		Str("event_id", event.ID).
		Str("role", string(role)).
		Int("approvers", len(approvers)).
		Msg("approval requests assigned")
	return nil
}

// openRequest creates a PENDING approval for the (event, approver)
// pair, or returns the existing one unchanged. Creation is idempotent:
// at most one PENDING approval exists per pair at any time.
func openRequest(ctx context.Context, tx Tx, eventID, approverID string, role Role) (*Approval, error) {
	existing, err := tx.FindPendingApproval(ctx, eventID, approverID)
	if err != nil {
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := tx.CreateApproval(ctx, ApprovalCreateParams{
		EventID:    eventID,
		ApproverID: approverID,
		Role:       role,
	})
	if err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	return created, nil
}
