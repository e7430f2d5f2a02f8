package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/campusflow/server/internal/domain/users"
	"github.com/campusflow/server/internal/email"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// NotificationEmailArgs is the payload for delivering the email copy
// of an in-app notification.
type NotificationEmailArgs struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

func (NotificationEmailArgs) Kind() string { return JobKindNotificationEmail }

// NotificationEmailWorker resolves the recipient's address and sends
// the message. A user without a valid address completes the job
// without error; there is nothing to retry.
type NotificationEmailWorker struct {
	river.WorkerDefaults[NotificationEmailArgs]
	Email  *email.Service
	Users  users.Repository
	Logger *slog.Logger
}

func (NotificationEmailWorker) Kind() string { return JobKindNotificationEmail }

func (w NotificationEmailWorker) Work(ctx context.Context, job *river.Job[NotificationEmailArgs]) error {
	if w.Email == nil || w.Users == nil {
		return fmt.Errorf("notification email worker not configured")
	}

	user, err := w.Users.GetByID(ctx, job.Args.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			w.Logger.Warn("notification email recipient no longer exists",
				slog.String("user_id", job.Args.UserID))
			return nil
		}
		return fmt.Errorf("load recipient: %w", err)
	}
	if user.Email == "" {
		return nil
	}

	if err := w.Email.Send(ctx, user.Email, job.Args.Title, job.Args.Message); err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}
	return nil
}

// NewWorkers registers all background workers.
func NewWorkers(emailSvc *email.Service, userRepo users.Repository, logger *slog.Logger) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, &NotificationEmailWorker{
		Email:  emailSvc,
		Users:  userRepo,
		Logger: logger.With(slog.String("component", "jobs")),
	})
	return workers
}

// EmailEnqueuer schedules notification emails on the river queue. It
// satisfies the notifications service's EmailEnqueuer.
type EmailEnqueuer struct {
	Client *river.Client[pgx.Tx]
}

func (e *EmailEnqueuer) EnqueueEmail(ctx context.Context, userID, title, message string) error {
	if e == nil || e.Client == nil {
		return fmt.Errorf("river client not configured")
	}
	_, err := e.Client.Insert(ctx, NotificationEmailArgs{
		UserID:  userID,
		Title:   title,
		Message: message,
	}, &river.InsertOpts{MaxAttempts: NotificationEmailMaxAttempts})
	return err
}
