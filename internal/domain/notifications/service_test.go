package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotificationRepo struct {
	created   []CreateParams
	createErr error
}

func (r *fakeNotificationRepo) Create(ctx context.Context, params CreateParams) (*Notification, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.created = append(r.created, params)
	return &Notification{ID: "notification-1", UserID: params.UserID, Title: params.Title}, nil
}

func (r *fakeNotificationRepo) ListForUser(ctx context.Context, userID string, limit int) ([]Notification, error) {
	return nil, nil
}

func (r *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	return nil
}

type fakeEnqueuer struct {
	enqueued []string
	err      error
}

func (e *fakeEnqueuer) EnqueueEmail(ctx context.Context, userID, title, message string) error {
	if e.err != nil {
		return e.err
	}
	e.enqueued = append(e.enqueued, userID)
	return nil
}

func TestNotify_PersistsAndEnqueues(t *testing.T) {
	repo := &fakeNotificationRepo{}
	enqueuer := &fakeEnqueuer{}
	service := NewService(repo, enqueuer, zerolog.Nop())

	service.Notify(context.Background(), approvals.Notification{
		UserID:   "user-1",
		Title:    "New Approval Request",
		Message:  "You have a new event approval request.",
		Severity: approvals.SeverityInfo,
	})

	require.Len(t, repo.created, 1)
	assert.Equal(t, "user-1", repo.created[0].UserID)
	assert.Equal(t, approvals.SeverityInfo, repo.created[0].Severity)
	assert.Equal(t, []string{"user-1"}, enqueuer.enqueued)
}

func TestNotify_PersistFailureSkipsEmail(t *testing.T) {
	repo := &fakeNotificationRepo{createErr: errors.New("connection reset")}
	enqueuer := &fakeEnqueuer{}
	service := NewService(repo, enqueuer, zerolog.Nop())

	service.Notify(context.Background(), approvals.Notification{UserID: "user-1", Title: "t"})

	assert.Empty(t, enqueuer.enqueued)
}

func TestNotify_EnqueueFailureIsSwallowed(t *testing.T) {
	repo := &fakeNotificationRepo{}
	enqueuer := &fakeEnqueuer{err: errors.New("queue full")}
	service := NewService(repo, enqueuer, zerolog.Nop())

	// Must not panic or surface the enqueue failure.
	service.Notify(context.Background(), approvals.Notification{UserID: "user-1", Title: "t"})

	require.Len(t, repo.created, 1)
}

func TestNotify_NilEnqueuer(t *testing.T) {
	repo := &fakeNotificationRepo{}
	service := NewService(repo, nil, zerolog.Nop())

	service.Notify(context.Background(), approvals.Notification{UserID: "user-1", Title: "t"})

	require.Len(t, repo.created, 1)
}
