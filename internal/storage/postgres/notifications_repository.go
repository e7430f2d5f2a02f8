package postgres

import (
	"context"
	"fmt"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/notifications"
)

type NotificationRepository struct {
	db dbtx
}

var _ notifications.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, params notifications.CreateParams) (*notifications.Notification, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO notifications (user_id, title, message, severity)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, title, message, severity, is_read, created_at
`, params.UserID, params.Title, params.Message, string(params.Severity))

	var n notifications.Notification
	var severity string
	if err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &severity, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	n.Severity = approvals.Severity(severity)
	return &n, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID string, limit int) ([]notifications.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
SELECT id, user_id, title, message, severity, is_read, created_at
  FROM notifications
 WHERE user_id = $1
 ORDER BY created_at DESC
 LIMIT $2
`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []notifications.Notification
	for rows.Next() {
		var n notifications.Notification
		var severity string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &severity, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Severity = approvals.Severity(severity)
		items = append(items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return items, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE notifications SET is_read = true
 WHERE id = $1 AND user_id = $2
`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notifications.ErrNotFound
	}
	return nil
}
