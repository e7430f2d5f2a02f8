package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/campusflow/server/internal/audit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, approverID, eventID := seedWorkflowFixture(t, ctx)

	log := &AuditLog{db: pool}

	require.NoError(t, log.Append(ctx, audit.Entry{
		Action:     audit.ActionStateChange,
		EntityType: audit.EntityEvent,
		EntityID:   eventID,
		ActorID:    approverID,
		Changes:    map[string]any{"from": "SUBMITTED", "to": "HOD_APPROVED"},
		Timestamp:  time.Now().UTC(),
	}))
	require.NoError(t, log.Append(ctx, audit.Entry{
		Action:     audit.ActionApprove,
		EntityType: audit.EntityEvent,
		EntityID:   eventID,
		ActorID:    approverID,
	}))

	entries, err := log.Recent(ctx, audit.EntityEvent, eventID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, audit.ActionApprove, entries[0].Action)
	assert.Equal(t, approverID, entries[0].ActorID)
	assert.Equal(t, audit.ActionStateChange, entries[1].Action)
	assert.Equal(t, "HOD_APPROVED", entries[1].Changes["to"])
	assert.False(t, entries[1].Timestamp.IsZero())
}

func TestAuditLogRecentFiltersEntity(t *testing.T) {
	ctx := context.Background()
	pool, _, _, _, _, eventID := seedWorkflowFixture(t, ctx)

	log := &AuditLog{db: pool}

	require.NoError(t, log.Append(ctx, audit.Entry{
		Action:     audit.ActionApprove,
		EntityType: audit.EntityApproval,
		EntityID:   "some-approval",
	}))

	entries, err := log.Recent(ctx, audit.EntityEvent, eventID, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
