package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two committee members decide at the same time under MAJORITY quorum.
// The event-row lock taken inside InTx must serialize them so the
// quorum count and the transition agree: whichever transaction runs
// second sees the first decision committed, so the stage fires exactly
// once and can never be skipped by both sides counting a stale 1/3.
func TestWorkflowConcurrentHLCDecisionsMajority(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	institutionID := insertInstitution(t, ctx, pool, "Test College", "TC", `{"hlcMode":"MAJORITY"}`)
	departmentID := insertDepartment(t, ctx, pool, institutionID, "Computer Science", "CS")
	organizerID := insertUser(t, ctx, pool, institutionID, strPtr(departmentID), "Organizer", "organizer@tc.edu", "FACULTY")
	memberOne := insertUser(t, ctx, pool, institutionID, nil, "Member One", "hlc1@tc.edu", "HLC_MEMBER")
	memberTwo := insertUser(t, ctx, pool, institutionID, nil, "Member Two", "hlc2@tc.edu", "HLC_MEMBER")
	insertUser(t, ctx, pool, institutionID, nil, "Member Three", "hlc3@tc.edu", "HLC_MEMBER")
	insertUser(t, ctx, pool, institutionID, nil, "Director", "mgmt@tc.edu", "MANAGEMENT")
	eventID := insertEvent(t, ctx, pool, institutionID, departmentID, organizerID, "Tech Fest", "HOD_APPROVED", time.Now().Add(24*time.Hour))

	store := &ApprovalStore{pool: pool}
	engine := approvals.NewEngine(store, nil, zerolog.Nop())

	first, err := engine.CreateApprovalRequest(ctx, eventID, memberOne, approvals.RoleHLCMember)
	require.NoError(t, err)
	second, err := engine.CreateApprovalRequest(ctx, eventID, memberTwo, approvals.RoleHLCMember)
	require.NoError(t, err)

	requests := []*approvals.Approval{first, second}
	errs := make([]error, len(requests))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, request := range requests {
		wg.Add(1)
		go func(i int, request *approvals.Approval) {
			defer wg.Done()
			<-start
			_, errs[i] = engine.ProcessApproval(ctx, approvals.DecisionParams{
				ApprovalID: request.ID,
				Decision:   approvals.DecisionApproved,
				ActorID:    request.ApproverID,
			})
		}(i, request)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "decision %d", i)
	}

	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, eventID).Scan(&status))
	assert.Equal(t, "HLC_APPROVED", status)

	// 2 of 3 approved is a strict majority, so the stage transitions
	// exactly once regardless of which decision lands first.
	var transitions int
	require.NoError(t, pool.QueryRow(ctx, `
SELECT COUNT(*) FROM audit_logs
 WHERE entity_type = 'Event' AND entity_id = $1 AND action = 'STATE_CHANGE'`, eventID).Scan(&transitions))
	assert.Equal(t, 1, transitions)

	var approved int
	require.NoError(t, pool.QueryRow(ctx, `
SELECT COUNT(*) FROM approvals
 WHERE event_id = $1 AND role = 'HLC_MEMBER' AND status = 'APPROVED'`, eventID).Scan(&approved))
	assert.Equal(t, 2, approved)

	// The management stage opened exactly one request for the director.
	var managementPending int
	require.NoError(t, pool.QueryRow(ctx, `
SELECT COUNT(*) FROM approvals
 WHERE event_id = $1 AND role = 'MANAGEMENT' AND status = 'PENDING'`, eventID).Scan(&managementPending))
	assert.Equal(t, 1, managementPending)
}

// The mirror case: a 1/2 split under MAJORITY must not fire the stage
// even when both deciders race, and a concurrent rejection always wins.
func TestWorkflowConcurrentApproveAndReject(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	institutionID := insertInstitution(t, ctx, pool, "Test College", "TC", `{"hlcMode":"UNANIMOUS"}`)
	departmentID := insertDepartment(t, ctx, pool, institutionID, "Computer Science", "CS")
	organizerID := insertUser(t, ctx, pool, institutionID, strPtr(departmentID), "Organizer", "organizer@tc.edu", "FACULTY")
	memberOne := insertUser(t, ctx, pool, institutionID, nil, "Member One", "hlc1@tc.edu", "HLC_MEMBER")
	memberTwo := insertUser(t, ctx, pool, institutionID, nil, "Member Two", "hlc2@tc.edu", "HLC_MEMBER")
	eventID := insertEvent(t, ctx, pool, institutionID, departmentID, organizerID, "Tech Fest", "HOD_APPROVED", time.Now().Add(24*time.Hour))

	store := &ApprovalStore{pool: pool}
	engine := approvals.NewEngine(store, nil, zerolog.Nop())

	first, err := engine.CreateApprovalRequest(ctx, eventID, memberOne, approvals.RoleHLCMember)
	require.NoError(t, err)
	second, err := engine.CreateApprovalRequest(ctx, eventID, memberTwo, approvals.RoleHLCMember)
	require.NoError(t, err)

	decisions := []approvals.DecisionParams{
		{ApprovalID: first.ID, Decision: approvals.DecisionApproved, ActorID: memberOne},
		{ApprovalID: second.ID, Decision: approvals.DecisionRejected, Comments: "clashes with exams", ActorID: memberTwo},
	}
	errs := make([]error, len(decisions))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, params := range decisions {
		wg.Add(1)
		go func(i int, params approvals.DecisionParams) {
			defer wg.Done()
			<-start
			_, errs[i] = engine.ProcessApproval(ctx, params)
		}(i, params)
	}
	close(start)
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "decision %d", i)
	}

	// Unanimity is unreachable once one member rejects; the event must
	// end REJECTED with at most the single rejection transition.
	var status string
	require.NoError(t, pool.QueryRow(ctx, `SELECT status FROM events WHERE id = $1`, eventID).Scan(&status))
	assert.Equal(t, "REJECTED", status)

	var transitions int
	require.NoError(t, pool.QueryRow(ctx, `
SELECT COUNT(*) FROM audit_logs
 WHERE entity_type = 'Event' AND entity_id = $1 AND action = 'STATE_CHANGE'`, eventID).Scan(&transitions))
	assert.Equal(t, 1, transitions)
}
