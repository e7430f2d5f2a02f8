package approvals

import (
	"context"
	"fmt"
	"time"

	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/metrics"
	"github.com/rs/zerolog"
)

// Engine drives events through the role-gated approval chain. It holds
// no mutable state of its own: construct it once with its injected
// collaborators and share it freely across requests.
type Engine struct {
	store    Store
	notifier Notifier
	logger   zerolog.Logger
}

func NewEngine(store Store, notifier Notifier, logger zerolog.Logger) *Engine {
	return &Engine{
		store:    store,
		notifier: notifier,
		logger:   logger.With().Str("component", "approvals").Logger(),
	}
}

// DecisionParams carries an approver's decision into ProcessApproval.
// The caller is responsible for verifying that ActorID is the assigned
// approver before invoking the engine.
type DecisionParams struct {
	ApprovalID string
	Decision   Decision
	Comments   string
	ActorID    string
}

// CreateApprovalRequest opens a PENDING approval for the pair,
// returning the existing record unchanged when one is already open.
func (e *Engine) CreateApprovalRequest(ctx context.Context, eventID, approverID string, role Role) (*Approval, error) {
	var approval *Approval
	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var txErr error
		approval, txErr = openRequest(ctx, tx, eventID, approverID, role)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return approval, nil
}

// GetApproval loads an approval without opening a transaction; the API
// boundary uses it for ownership checks before processing a decision.
func (e *Engine) GetApproval(ctx context.Context, id string) (*Approval, error) {
	return e.store.GetApproval(ctx, id)
}

// ListPendingForApprover returns the caller's open approval requests.
func (e *Engine) ListPendingForApprover(ctx context.Context, approverID string) ([]Approval, error) {
	return e.store.ListPendingForApprover(ctx, approverID)
}

// ProcessApproval records an approver's decision and advances the
// workflow. Steps 1-7 run in a single transaction: the decision write,
// its audit entry, the quorum evaluation and any resulting event
// transition either all apply or none do. Notification intents
// gathered along the way are dispatched only after the commit.
func (e *Engine) ProcessApproval(ctx context.Context, params DecisionParams) (*Approval, error) {
	var (
		approval *Approval
		intents  []Notification
	)

	err := e.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.GetApproval(ctx, params.ApprovalID)
		if err != nil {
			return err
		}
		if current.Status != ApprovalPending {
			return ErrAlreadyDecided
		}

		decided, err := tx.RecordDecision(ctx, current.ID, params.Decision.approvalStatus(), params.Comments, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("record decision: %w", err)
		}
		approval = decided

		action := audit.ActionApprove
		if params.Decision == DecisionRejected {
			action = audit.ActionReject
		}
		entry := audit.Entry{
			Action:     action,
			EntityType: audit.EntityApproval,
			EntityID:   decided.ID,
			ActorID:    params.ActorID,
			Changes: map[string]any{
				"status":   string(decided.Status),
				"comments": params.Comments,
			},
		}
		if err := tx.Append(ctx, entry); err != nil {
			return fmt.Errorf("append audit entry: %w", err)
		}

		// Lock the event row before looking at anything quorum-related
		// so concurrent deciders on the same stage are serialized.
		event, err := tx.GetEventForUpdate(ctx, decided.EventID)
		if err != nil {
			return err
		}

		if params.Decision == DecisionRejected {
			return e.rejectEvent(ctx, tx, event, params.ActorID, &intents)
		}

		satisfied, err := e.quorumSatisfied(ctx, tx, event, decided.Role)
		if err != nil {
			return err
		}
		if !satisfied {
			return nil
		}
		return e.applyTransition(ctx, tx, event, decided.Role, params.ActorID, &intents)
	})
	if err != nil {
		return nil, err
	}

	metrics.WorkflowDecisions.WithLabelValues(string(params.Decision)).Inc()
	e.dispatch(ctx, intents)
	return approval, nil
}

// dispatch hands collected notification intents to the notifier after
// the transaction has committed. Delivery is best effort: the notifier
// logs its own failures and nothing propagates back here.
func (e *Engine) dispatch(ctx context.Context, intents []Notification) {
	if e.notifier == nil {
		return
	}
	for _, intent := range intents {
		e.notifier.Notify(ctx, intent)
	}
}
