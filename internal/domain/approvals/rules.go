package approvals

import (
	"context"
	"fmt"
)

// quorumSatisfied decides whether the given role's quorum is met for
// the event. HOD, MANAGEMENT and ADMIN are single-approver gates; the
// HLC stage follows the institution's configured quorum mode. Counts
// are read inside the caller's transaction, after the event row has
// been locked, so two approvers cannot both observe a sub-quorum count.
func (e *Engine) quorumSatisfied(ctx context.Context, tx Tx, event *Event, role Role) (bool, error) {
	switch role {
	case RoleAdmin, RoleHOD, RoleManagement:
		return true, nil
	case RoleHLCMember:
		// Falls through to quorum-mode evaluation below.
	default:
		return false, fmt.Errorf("quorum evaluation: unknown role %q", role)
	}

	raw, err := tx.ApprovalConfigRaw(ctx, event.InstitutionID)
	if err != nil {
		return false, fmt.Errorf("load approval config: %w", err)
	}
	cfg, ok := parseApprovalConfig(raw)
	if !ok {
		e.logger.Warn().
			Str("institution_id", event.InstitutionID).
			Str("fallback", string(QuorumSingle)).
			Msg("unrecognized hlc quorum mode, falling back to SINGLE")
	}

	if cfg.HLCMode == QuorumSingle {
		return true, nil
	}

	approved, err := tx.CountApprovals(ctx, event.ID, RoleHLCMember, ApprovalApproved)
	if err != nil {
		return false, fmt.Errorf("count hlc approvals: %w", err)
	}
	members, err := tx.CountActiveUsers(ctx, event.InstitutionID, RoleHLCMember, nil)
	if err != nil {
		return false, fmt.Errorf("count active hlc members: %w", err)
	}

	switch cfg.HLCMode {
	case QuorumUnanimous:
		return approved == members, nil
	case QuorumMajority:
		// Strict majority: a tie does not satisfy it.
		return float64(approved) > float64(members)/2, nil
	}
	return true, nil
}
