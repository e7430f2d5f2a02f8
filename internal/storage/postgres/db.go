package postgres

import (
	"context"
	"fmt"

	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/events"
	"github.com/campusflow/server/internal/domain/notifications"
	"github.com/campusflow/server/internal/domain/tenants"
	"github.com/campusflow/server/internal/domain/users"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is the slice of pgx shared by pgxpool.Pool and pgx.Tx that the
// repositories need.
type dbtx interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Events() events.Repository {
	return &EventRepository{db: r.pool}
}

func (r *Repository) Users() users.Repository {
	return &UserRepository{db: r.pool}
}

func (r *Repository) Tenants() tenants.Repository {
	return &TenantRepository{db: r.pool}
}

func (r *Repository) Notifications() notifications.Repository {
	return &NotificationRepository{db: r.pool}
}

func (r *Repository) Audit() audit.Sink {
	return &AuditLog{db: r.pool}
}

// AuditTrail exposes the read side of the audit log for the admin
// listing endpoint.
func (r *Repository) AuditTrail() *AuditLog {
	return &AuditLog{db: r.pool}
}

func (r *Repository) Approvals() approvals.Store {
	return &ApprovalStore{pool: r.pool}
}

// ApprovalStore opens workflow transactions. Every collaborator the
// engine touches inside InTx shares one pgx.Tx, so a failed audit
// append or status update rolls the whole decision back.
type ApprovalStore struct {
	pool *pgxpool.Pool
}

var _ approvals.Store = (*ApprovalStore)(nil)

// approvalTx bundles the transactional views of the repositories.
type approvalTx struct {
	*ApprovalRepository
	*EventRepository
	*UserRepository
	*TenantRepository
	*AuditLog
}

var _ approvals.Tx = (*approvalTx)(nil)

func (s *ApprovalStore) InTx(ctx context.Context, fn func(ctx context.Context, tx approvals.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	wrapped := &approvalTx{
		ApprovalRepository: &ApprovalRepository{db: pgtx},
		EventRepository:    &EventRepository{db: pgtx},
		UserRepository:     &UserRepository{db: pgtx},
		TenantRepository:   &TenantRepository{db: pgtx},
		AuditLog:           &AuditLog{db: pgtx},
	}
	if err := fn(ctx, wrapped); err != nil {
		_ = pgtx.Rollback(ctx)
		return err
	}

	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *ApprovalStore) GetApproval(ctx context.Context, id string) (*approvals.Approval, error) {
	repo := &ApprovalRepository{db: s.pool}
	return repo.GetApproval(ctx, id)
}

func (s *ApprovalStore) ListPendingForApprover(ctx context.Context, approverID string) ([]approvals.Approval, error) {
	repo := &ApprovalRepository{db: s.pool}
	return repo.ListPendingForApprover(ctx, approverID)
}
