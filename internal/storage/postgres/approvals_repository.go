package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/jackc/pgx/v5"
)

type ApprovalRepository struct {
	db dbtx
}

var _ approvals.ApprovalStore = (*ApprovalRepository)(nil)

const approvalColumns = `id, event_id, approver_id, role, status, comments, signed_at, created_at, updated_at`

func scanApproval(row pgx.Row) (*approvals.Approval, error) {
	var a approvals.Approval
	var role, status string
	if err := row.Scan(
		&a.ID,
		&a.EventID,
		&a.ApproverID,
		&role,
		&status,
		&a.Comments,
		&a.SignedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	a.Role = approvals.Role(role)
	a.Status = approvals.ApprovalStatus(status)
	return &a, nil
}

func (r *ApprovalRepository) GetApproval(ctx context.Context, id string) (*approvals.Approval, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+approvalColumns+`
  FROM approvals
 WHERE id = $1
`, id)

	a, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approvals.ErrNotFound
		}
		return nil, fmt.Errorf("get approval: %w", err)
	}
	return a, nil
}

func (r *ApprovalRepository) FindPendingApproval(ctx context.Context, eventID, approverID string) (*approvals.Approval, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+approvalColumns+`
  FROM approvals
 WHERE event_id = $1 AND approver_id = $2 AND status = 'PENDING'
 LIMIT 1
`, eventID, approverID)

	a, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending approval: %w", err)
	}
	return a, nil
}

func (r *ApprovalRepository) CreateApproval(ctx context.Context, params approvals.ApprovalCreateParams) (*approvals.Approval, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO approvals (event_id, approver_id, role)
VALUES ($1, $2, $3)
RETURNING `+approvalColumns+`
`, params.EventID, params.ApproverID, string(params.Role))

	a, err := scanApproval(row)
	if err != nil {
		return nil, fmt.Errorf("create approval: %w", err)
	}
	return a, nil
}

func (r *ApprovalRepository) RecordDecision(ctx context.Context, id string, status approvals.ApprovalStatus, comments string, signedAt time.Time) (*approvals.Approval, error) {
	row := r.db.QueryRow(ctx, `
UPDATE approvals
   SET status = $2, comments = $3, signed_at = $4, updated_at = now()
 WHERE id = $1 AND status = 'PENDING'
RETURNING `+approvalColumns+`
`, id, string(status), comments, signedAt)

	a, err := scanApproval(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the id is unknown or the row is no longer PENDING;
			// the engine re-reads before deciding, so report the latter.
			return nil, approvals.ErrAlreadyDecided
		}
		return nil, fmt.Errorf("record decision: %w", err)
	}
	return a, nil
}

func (r *ApprovalRepository) CountApprovals(ctx context.Context, eventID string, role approvals.Role, status approvals.ApprovalStatus) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
SELECT count(*)
  FROM approvals
 WHERE event_id = $1 AND role = $2 AND status = $3
`, eventID, string(role), string(status)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count approvals: %w", err)
	}
	return count, nil
}

func (r *ApprovalRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]approvals.Approval, error) {
	rows, err := r.db.Query(ctx, `
SELECT `+approvalColumns+`
  FROM approvals
 WHERE approver_id = $1 AND status = 'PENDING'
 ORDER BY created_at ASC
`, approverID)
	if err != nil {
		return nil, fmt.Errorf("list pending approvals: %w", err)
	}
	defer rows.Close()

	var items []approvals.Approval
	for rows.Next() {
		a, err := scanApproval(rows)
		if err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return items, nil
}
