package approvals

import (
	"context"
	"fmt"

	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/metrics"
)

// nextStage maps the role whose quorum was just satisfied to the
// status the event moves to and the role that reviews the following
// stage. The switch is exhaustive over Role: adding a role fails to
// compile workflows that forget to place it in the chain.
func nextStage(role Role) (status EventStatus, next Role, hasNext bool) {
	switch role {
	case RoleHOD:
		return StatusHODApproved, RoleHLCMember, true
	case RoleHLCMember:
		return StatusHLCApproved, RoleManagement, true
	case RoleManagement:
		return StatusApproved, "", false
	case RoleAdmin:
		// Administrative override: straight to the terminal state.
		return StatusApproved, "", false
	}
	return "", "", false
}

// applyTransition advances the event after a satisfied quorum:
// persists the new status, audits {from,to}, queues an organizer
// notification and opens the next stage's approval requests. When the
// computed status does not advance the chain (a concurrent approver
// already moved it), the call is a no-op.
func (e *Engine) applyTransition(ctx context.Context, tx Tx, event *Event, role Role, actorID string, intents *[]Notification) error {
	newStatus, next, hasNext := nextStage(role)
	if newStatus == "" || newStatus == event.Status {
		return nil
	}
	if event.Status.Terminal() || newStatus.rank() <= event.Status.rank() {
		// Never move the chain backwards or out of a terminal state.
		e.logger.Debug().
			Str("event_id", event.ID).
			Str("current", string(event.Status)).
			Str("computed", string(newStatus)).
			Msg("transition skipped, event already advanced")
		return nil
	}

	if err := tx.UpdateEventStatus(ctx, event.ID, newStatus); err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	entry := audit.Entry{
		Action:     audit.ActionStateChange,
		EntityType: audit.EntityEvent,
		EntityID:   event.ID,
		ActorID:    actorID,
		Changes: map[string]any{
			"from": string(event.Status),
			"to":   string(newStatus),
		},
	}
	if err := tx.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	metrics.WorkflowTransitions.WithLabelValues(string(event.Status), string(newStatus)).Inc()

	*intents = append(*intents, Notification{
		UserID:   event.OrganizerID,
		Title:    "Event Status Updated",
		Message:  fmt.Sprintf("Your event %q is now %s.", event.Title, newStatus),
		Severity: SeveritySuccess,
	})

	event.Status = newStatus
	if hasNext && !newStatus.Terminal() {
		return e.assignNextApprovers(ctx, tx, event, next, intents)
	}
	return nil
}

// rejectEvent forces the event into the terminal REJECTED state from
// any non-terminal status. No quorum evaluation occurs for rejections.
func (e *Engine) rejectEvent(ctx context.Context, tx Tx, event *Event, actorID string, intents *[]Notification) error {
	if event.Status.Terminal() {
		return nil
	}

	if err := tx.UpdateEventStatus(ctx, event.ID, StatusRejected); err != nil {
		return fmt.Errorf("update event status: %w", err)
	}

	entry := audit.Entry{
		Action:     audit.ActionStateChange,
		EntityType: audit.EntityEvent,
		EntityID:   event.ID,
		ActorID:    actorID,
		Changes: map[string]any{
			"from": string(event.Status),
			"to":   string(StatusRejected),
		},
	}
	if err := tx.Append(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}

	metrics.WorkflowTransitions.WithLabelValues(string(event.Status), string(StatusRejected)).Inc()

	*intents = append(*intents, Notification{
		UserID:   event.OrganizerID,
		Title:    "Event Rejected",
		Message:  fmt.Sprintf("Your event %q was rejected.", event.Title),
		Severity: SeverityError,
	})

	event.Status = StatusRejected
	return nil
}
