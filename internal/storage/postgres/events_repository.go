package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
)

type EventRepository struct {
	db dbtx
}

var (
	_ events.Repository    = (*EventRepository)(nil)
	_ approvals.EventStore = (*EventRepository)(nil)
)

const eventColumns = `id, title, description, location, start_date, end_date, status,
       organizer_id, institution_id, department_id, created_at, updated_at, deleted_at`

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	var status string
	if err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.StartDate,
		&e.EndDate,
		&status,
		&e.OrganizerID,
		&e.InstitutionID,
		&e.DepartmentID,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
	); err != nil {
		return nil, err
	}
	e.Status = approvals.EventStatus(status)
	return &e, nil
}

func (r *EventRepository) Create(ctx context.Context, params events.CreateParams) (*events.Event, error) {
	row := r.db.QueryRow(ctx, `
INSERT INTO events (title, description, location, start_date, end_date,
                    organizer_id, institution_id, department_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+eventColumns+`
`,
		params.Title,
		params.Description,
		params.Location,
		params.StartDate,
		params.EndDate,
		params.OrganizerID,
		params.InstitutionID,
		params.DepartmentID,
	)

	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	for _, att := range params.Attachments {
		var created events.Attachment
		err := r.db.QueryRow(ctx, `
INSERT INTO event_attachments (event_id, file_name, file_url, file_type)
VALUES ($1, $2, $3, $4)
RETURNING id, event_id, file_name, file_url, file_type, created_at
`, event.ID, att.FileName, att.FileURL, att.FileType).Scan(
			&created.ID,
			&created.EventID,
			&created.FileName,
			&created.FileURL,
			&created.FileType,
			&created.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("create attachment: %w", err)
		}
		event.Attachments = append(event.Attachments, created)
	}
	return event, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	row := r.db.QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE id = $1 AND deleted_at IS NULL
`, id)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	attachments, err := r.attachments(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Attachments = attachments
	return event, nil
}

func (r *EventRepository) attachments(ctx context.Context, eventID string) ([]events.Attachment, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, event_id, file_name, file_url, file_type, created_at
  FROM event_attachments
 WHERE event_id = $1
 ORDER BY created_at ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	var items []events.Attachment
	for rows.Next() {
		var a events.Attachment
		if err := rows.Scan(&a.ID, &a.EventID, &a.FileName, &a.FileURL, &a.FileType, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

// filterClause renders the shared WHERE conditions for List and Report.
// Positional arguments start at $1.
func filterClause(filters events.Filters) (string, []any) {
	conditions := []string{"deleted_at IS NULL"}
	args := []any{}

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if filters.InstitutionID != "" {
		add("institution_id = $%d", filters.InstitutionID)
	}
	if filters.Status != "" {
		add("status = $%d", string(filters.Status))
	}
	if filters.DepartmentID != "" {
		add("department_id = $%d", filters.DepartmentID)
	}
	if filters.StartDate != nil {
		add("start_date >= $%d", *filters.StartDate)
	}
	if filters.EndDate != nil {
		add("start_date <= $%d", *filters.EndDate)
	}
	return strings.Join(conditions, " AND "), args
}

func (r *EventRepository) List(ctx context.Context, filters events.Filters, pagination events.Pagination) (events.ListResult, error) {
	page := pagination.Page
	if page <= 0 {
		page = 1
	}
	limit := pagination.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := (page - 1) * limit

	where, args := filterClause(filters)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM events WHERE `+where, args...).Scan(&total); err != nil {
		return events.ListResult{}, fmt.Errorf("count events: %w", err)
	}

	limitArgs := append(args, limit, offset)
	rows, err := r.db.Query(ctx, fmt.Sprintf(`
SELECT `+eventColumns+`
  FROM events
 WHERE %s
 ORDER BY created_at DESC
 LIMIT $%d OFFSET $%d
`, where, len(args)+1, len(args)+2), limitArgs...)
	if err != nil {
		return events.ListResult{}, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	items := make([]events.Event, 0, limit)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return events.ListResult{}, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return events.ListResult{}, fmt.Errorf("iterate events: %w", err)
	}

	return events.ListResult{Events: items, Total: total, Page: page, Limit: limit}, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.UpdateParams) (*events.Event, error) {
	row := r.db.QueryRow(ctx, `
UPDATE events
   SET title = COALESCE($2, title),
       description = COALESCE($3, description),
       location = COALESCE($4, location),
       start_date = COALESCE($5, start_date),
       end_date = COALESCE($6, end_date),
       updated_at = now()
 WHERE id = $1 AND deleted_at IS NULL
RETURNING `+eventColumns+`
`, id, params.Title, params.Description, params.Location, params.StartDate, params.EndDate)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}

	attachments, err := r.attachments(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Attachments = attachments
	return event, nil
}

func (r *EventRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE events SET deleted_at = now(), updated_at = now()
 WHERE id = $1 AND deleted_at IS NULL
`, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return events.ErrNotFound
	}
	return nil
}

func (r *EventRepository) Report(ctx context.Context, filters events.Filters) ([]events.Event, error) {
	where, args := filterClause(filters)

	rows, err := r.db.Query(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE `+where+`
 ORDER BY start_date ASC
`, args...)
	if err != nil {
		return nil, fmt.Errorf("report events: %w", err)
	}
	defer rows.Close()

	var items []events.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		items = append(items, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

// GetEventForUpdate locks the event row for the rest of the enclosing
// transaction so concurrent decisions on the same event serialize.
func (r *EventRepository) GetEventForUpdate(ctx context.Context, eventID string) (*approvals.Event, error) {
	row := r.db.QueryRow(ctx, `
SELECT id, title, status, organizer_id, institution_id, department_id
  FROM events
 WHERE id = $1 AND deleted_at IS NULL
   FOR UPDATE
`, eventID)

	var e approvals.Event
	var status string
	if err := row.Scan(&e.ID, &e.Title, &status, &e.OrganizerID, &e.InstitutionID, &e.DepartmentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approvals.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event: %w", err)
	}
	e.Status = approvals.EventStatus(status)
	return &e, nil
}

func (r *EventRepository) UpdateEventStatus(ctx context.Context, eventID string, status approvals.EventStatus) error {
	tag, err := r.db.Exec(ctx, `
UPDATE events SET status = $2, updated_at = now()
 WHERE id = $1 AND deleted_at IS NULL
`, eventID, string(status))
	if err != nil {
		return fmt.Errorf("update event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return approvals.ErrEventNotFound
	}
	return nil
}
