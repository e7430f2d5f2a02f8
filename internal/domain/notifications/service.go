package notifications

import (
	"context"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/metrics"
	"github.com/rs/zerolog"
)

// EmailEnqueuer schedules the email copy of a notification for
// background delivery. The jobs package provides the river-backed
// implementation.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, userID, title, message string) error
}

// Service records notifications and schedules their email delivery.
// It implements the workflow engine's Notifier: Notify runs strictly
// after the engine's transaction has committed, and nothing that fails
// here ever reaches the workflow path.
type Service struct {
	repo     Repository
	enqueuer EmailEnqueuer
	logger   zerolog.Logger
}

func NewService(repo Repository, enqueuer EmailEnqueuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		enqueuer: enqueuer,
		logger:   logger.With().Str("component", "notifications").Logger(),
	}
}

var _ approvals.Notifier = (*Service)(nil)

// Notify persists the notification and enqueues its email. Best
// effort on both counts: failures are logged and dropped.
func (s *Service) Notify(ctx context.Context, n approvals.Notification) {
	_, err := s.repo.Create(ctx, CreateParams{
		UserID:   n.UserID,
		Title:    n.Title,
		Message:  n.Message,
		Severity: n.Severity,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", n.UserID).
			Str("title", n.Title).
			Msg("failed to persist notification")
		return
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueEmail(ctx, n.UserID, n.Title, n.Message); err != nil {
			s.logger.Warn().Err(err).
				Str("user_id", n.UserID).
				Msg("failed to enqueue notification email")
		}
	}

	metrics.NotificationsDispatched.WithLabelValues(string(n.Severity)).Inc()
}

func (s *Service) ListForUser(ctx context.Context, userID string) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, 50)
}

func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}
