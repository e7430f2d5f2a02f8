package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedWorkflowFixture(t *testing.T, ctx context.Context) (pool *pgxpool.Pool, institutionID, departmentID, organizerID, approverID, eventID string) {
	t.Helper()
	p := setupPostgres(t, ctx)

	institutionID = insertInstitution(t, ctx, p, "Test College", "TC", "")
	departmentID = insertDepartment(t, ctx, p, institutionID, "Computer Science", "CS")
	organizerID = insertUser(t, ctx, p, institutionID, strPtr(departmentID), "Organizer", "organizer@tc.edu", "FACULTY")
	approverID = insertUser(t, ctx, p, institutionID, strPtr(departmentID), "Head", "hod@tc.edu", "HOD")
	eventID = insertEvent(t, ctx, p, institutionID, departmentID, organizerID, "Tech Fest", "SUBMITTED", time.Now().Add(24*time.Hour))
	pool = p
	return pool, institutionID, departmentID, organizerID, approverID, eventID
}

func TestApprovalRepositoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	repo := &ApprovalRepository{db: pool}

	created, err := repo.CreateApproval(ctx, approvals.ApprovalCreateParams{
		EventID:    eventID,
		ApproverID: approverID,
		Role:       approvals.RoleHOD,
	})
	require.NoError(t, err)
	assert.Equal(t, approvals.ApprovalPending, created.Status)
	assert.Equal(t, approvals.RoleHOD, created.Role)
	assert.Nil(t, created.SignedAt)

	fetched, err := repo.GetApproval(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, eventID, fetched.EventID)
	assert.Equal(t, approverID, fetched.ApproverID)
}

func TestApprovalRepositoryGetApprovalNotFound(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	repo := &ApprovalRepository{db: pool}

	_, err := repo.GetApproval(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, approvals.ErrNotFound)
}

func TestApprovalRepositoryPendingIsUniquePerApprover(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	repo := &ApprovalRepository{db: pool}

	_, err := repo.CreateApproval(ctx, approvals.ApprovalCreateParams{
		EventID:    eventID,
		ApproverID: approverID,
		Role:       approvals.RoleHOD,
	})
	require.NoError(t, err)

	// A second open request for the same (event, approver) pair violates
	// the partial unique index.
	_, err = repo.CreateApproval(ctx, approvals.ApprovalCreateParams{
		EventID:    eventID,
		ApproverID: approverID,
		Role:       approvals.RoleHOD,
	})
	assert.Error(t, err)

	found, err := repo.FindPendingApproval(ctx, eventID, approverID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, approvals.ApprovalPending, found.Status)
}

func TestApprovalRepositoryRecordDecision(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	repo := &ApprovalRepository{db: pool}

	created, err := repo.CreateApproval(ctx, approvals.ApprovalCreateParams{
		EventID:    eventID,
		ApproverID: approverID,
		Role:       approvals.RoleHOD,
	})
	require.NoError(t, err)

	signedAt := time.Now().UTC().Truncate(time.Millisecond)
	decided, err := repo.RecordDecision(ctx, created.ID, approvals.ApprovalApproved, "looks good", signedAt)
	require.NoError(t, err)
	assert.Equal(t, approvals.ApprovalApproved, decided.Status)
	assert.Equal(t, "looks good", decided.Comments)
	require.NotNil(t, decided.SignedAt)
	assert.WithinDuration(t, signedAt, *decided.SignedAt, time.Second)

	// A decided approval stays decided.
	_, err = repo.RecordDecision(ctx, created.ID, approvals.ApprovalRejected, "changed my mind", time.Now())
	assert.ErrorIs(t, err, approvals.ErrAlreadyDecided)

	// And it no longer shows up as pending.
	found, err := repo.FindPendingApproval(ctx, eventID, approverID)
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestApprovalRepositoryCountApprovals(t *testing.T) {
	ctx := context.Background()
	pool, institutionID, departmentID, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	secondApprover := insertUser(t, ctx, pool, institutionID, strPtr(departmentID), "HLC One", "hlc1@tc.edu", "HLC_MEMBER")
	thirdApprover := insertUser(t, ctx, pool, institutionID, strPtr(departmentID), "HLC Two", "hlc2@tc.edu", "HLC_MEMBER")

	repo := &ApprovalRepository{db: pool}

	for _, id := range []string{approverID, secondApprover, thirdApprover} {
		role := approvals.RoleHLCMember
		if id == approverID {
			role = approvals.RoleHOD
		}
		created, err := repo.CreateApproval(ctx, approvals.ApprovalCreateParams{
			EventID:    eventID,
			ApproverID: id,
			Role:       role,
		})
		require.NoError(t, err)
		if id != thirdApprover {
			_, err = repo.RecordDecision(ctx, created.ID, approvals.ApprovalApproved, "", time.Now())
			require.NoError(t, err)
		}
	}

	approvedHLC, err := repo.CountApprovals(ctx, eventID, approvals.RoleHLCMember, approvals.ApprovalApproved)
	require.NoError(t, err)
	assert.Equal(t, 1, approvedHLC)

	pendingHLC, err := repo.CountApprovals(ctx, eventID, approvals.RoleHLCMember, approvals.ApprovalPending)
	require.NoError(t, err)
	assert.Equal(t, 1, pendingHLC)
}

func TestApprovalRepositoryListPendingForApprover(t *testing.T) {
	ctx := context.Background()
	pool, institutionID, departmentID, organizerID, approverID, eventID := seedWorkflowFixture(t, ctx)

	otherEvent := insertEvent(t, ctx, pool, institutionID, departmentID, organizerID, "Guest Lecture", "SUBMITTED", time.Now().Add(48*time.Hour))

	repo := &ApprovalRepository{db: pool}

	first, err := repo.CreateApproval(ctx, approvals.ApprovalCreateParams{EventID: eventID, ApproverID: approverID, Role: approvals.RoleHOD})
	require.NoError(t, err)
	_, err = repo.CreateApproval(ctx, approvals.ApprovalCreateParams{EventID: otherEvent, ApproverID: approverID, Role: approvals.RoleHOD})
	require.NoError(t, err)

	pending, err := repo.ListPendingForApprover(ctx, approverID)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	_, err = repo.RecordDecision(ctx, first.ID, approvals.ApprovalApproved, "", time.Now())
	require.NoError(t, err)

	pending, err = repo.ListPendingForApprover(ctx, approverID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, otherEvent, pending[0].EventID)
}

func TestApprovalStoreInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	store := &ApprovalStore{pool: pool}

	sentinel := assert.AnError
	err := store.InTx(ctx, func(ctx context.Context, tx approvals.Tx) error {
		_, err := tx.CreateApproval(ctx, approvals.ApprovalCreateParams{
			EventID:    eventID,
			ApproverID: approverID,
			Role:       approvals.RoleHOD,
		})
		require.NoError(t, err)
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	repo := &ApprovalRepository{db: pool}
	found, err := repo.FindPendingApproval(ctx, eventID, approverID)
	require.NoError(t, err)
	assert.Nil(t, found)
}
