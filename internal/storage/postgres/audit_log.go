package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/campusflow/server/internal/audit"
)

// AuditLog is the append-only audit trail. Rows are only ever inserted;
// there are no update or delete paths.
type AuditLog struct {
	db dbtx
}

var _ audit.Sink = (*AuditLog)(nil)

func (l *AuditLog) Append(ctx context.Context, entry audit.Entry) error {
	var changes []byte
	if entry.Changes != nil {
		encoded, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("encode audit changes: %w", err)
		}
		changes = encoded
	}

	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	var actorID any
	if entry.ActorID != "" {
		actorID = entry.ActorID
	}

	_, err := l.db.Exec(ctx, `
INSERT INTO audit_logs (action, entity_type, entity_id, actor_id, changes, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, entry.Action, entry.EntityType, entry.EntityID, actorID, changes, timestamp)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries for an entity, newest first. Used
// by the admin audit listing.
func (l *AuditLog) Recent(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.Query(ctx, `
SELECT action, entity_type, entity_id, COALESCE(actor_id::text, ''), changes, created_at
  FROM audit_logs
 WHERE entity_type = $1 AND entity_id = $2
 ORDER BY created_at DESC, id DESC
 LIMIT $3
`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var items []audit.Entry
	for rows.Next() {
		var entry audit.Entry
		var changes []byte
		if err := rows.Scan(&entry.Action, &entry.EntityType, &entry.EntityID, &entry.ActorID, &changes, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if len(changes) > 0 {
			if err := json.Unmarshal(changes, &entry.Changes); err != nil {
				return nil, fmt.Errorf("decode audit changes: %w", err)
			}
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return items, nil
}
