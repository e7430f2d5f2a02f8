package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/events"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type createEventRequest struct {
	Title       string              `json:"title" validate:"required,max=255"`
	Description string              `json:"description" validate:"max=10000"`
	Location    string              `json:"location" validate:"max=255"`
	StartDate   time.Time           `json:"startDate" validate:"required"`
	EndDate     time.Time           `json:"endDate" validate:"required"`
	Attachments []attachmentRequest `json:"attachments" validate:"dive"`
}

type attachmentRequest struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	FileURL  string `json:"fileUrl" validate:"required,url"`
	FileType string `json:"fileType" validate:"max=100"`
}

// Create submits a new event. The organizer, institution and department
// all come from the caller's token, never from the body.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	var req createEventRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}

	params := events.CreateParams{
		Title:         req.Title,
		Description:   req.Description,
		Location:      req.Location,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		OrganizerID:   principal.UserID,
		InstitutionID: principal.InstitutionID,
		DepartmentID:  principal.DepartmentID,
	}
	for _, a := range req.Attachments {
		params.Attachments = append(params.Attachments, events.AttachmentParams{
			FileName: a.FileName,
			FileURL:  a.FileURL,
			FileType: a.FileType,
		})
	}

	event, err := h.Service.Submit(r.Context(), params)
	if err != nil {
		var verr events.ValidationError
		if errors.As(err, &verr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]any{verr.Field: verr.Message}))
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusCreated, eventPayload(event))
}

func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	filters, err := parseEventFilters(r.URL.Query(), principal.InstitutionID)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}
	pagination := events.Pagination{
		Page:  intQuery(r.URL.Query(), "page", 1),
		Limit: intQuery(r.URL.Query(), "limit", 10),
	}

	result, err := h.Service.List(r.Context(), filters, pagination)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(result.Events))
	for i := range result.Events {
		items = append(items, eventPayload(&result.Events[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":  result.Page,
			"limit": result.Limit,
			"total": result.Total,
			"pages": result.Pages(),
		},
	})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	event, ok := h.loadScopedEvent(w, r, principal)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, eventPayload(event))
}

type updateEventRequest struct {
	Title       *string    `json:"title" validate:"omitempty,max=255"`
	Description *string    `json:"description" validate:"omitempty,max=10000"`
	Location    *string    `json:"location" validate:"omitempty,max=255"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

// Update edits descriptive fields. Only the organizer or an admin may
// edit, and the workflow status cannot be touched from here.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	event, ok := h.loadScopedEvent(w, r, principal)
	if !ok {
		return
	}
	if !canManageEvent(principal, event) {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", nil, h.Env)
		return
	}

	var req updateEventRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}

	updated, err := h.Service.Update(r.Context(), event.ID, events.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		var verr events.ValidationError
		switch {
		case errors.As(err, &verr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env,
				problem.WithErrors(map[string]any{verr.Field: verr.Message}))
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, eventPayload(updated))
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	event, ok := h.loadScopedEvent(w, r, principal)
	if !ok {
		return
	}
	if !canManageEvent(principal, event) {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", nil, h.Env)
		return
	}

	if err := h.Service.Delete(r.Context(), event.ID); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Report aggregates matching events with per-status counts. Routed
// behind a MANAGEMENT/ADMIN role gate.
func (h *EventsHandler) Report(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	filters, err := parseEventFilters(r.URL.Query(), principal.InstitutionID)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	result, err := h.Service.Report(r.Context(), filters)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(result.Events))
	for i := range result.Events {
		items = append(items, eventPayload(&result.Events[i]))
	}
	counts := make(map[string]int, len(result.StatusCounts))
	for status, count := range result.StatusCounts {
		counts[string(status)] = count
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":       items,
		"totalEvents":  result.TotalEvents,
		"statusCounts": counts,
	})
}

// loadScopedEvent fetches the path event and enforces tenant isolation:
// events from another institution read as absent.
func (h *EventsHandler) loadScopedEvent(w http.ResponseWriter, r *http.Request, principal middleware.Principal) (*events.Event, bool) {
	id := pathParam(r, "id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing event id"), h.Env)
		return nil, false
	}

	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return nil, false
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return nil, false
	}
	if event.InstitutionID != principal.InstitutionID {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", events.ErrNotFound, h.Env)
		return nil, false
	}
	return event, true
}

func canManageEvent(principal middleware.Principal, event *events.Event) bool {
	return principal.UserID == event.OrganizerID || principal.Role == string(approvals.RoleAdmin)
}

func parseEventFilters(query url.Values, institutionID string) (events.Filters, error) {
	filters := events.Filters{
		InstitutionID: institutionID,
		DepartmentID:  query.Get("departmentId"),
	}
	if raw := query.Get("status"); raw != "" {
		status, err := approvals.ParseEventStatus(raw)
		if err != nil {
			return events.Filters{}, err
		}
		filters.Status = status
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.Filters{}, errors.New("from must be an RFC 3339 timestamp")
		}
		filters.StartDate = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return events.Filters{}, errors.New("to must be an RFC 3339 timestamp")
		}
		filters.EndDate = &to
	}
	return filters, nil
}

func intQuery(query url.Values, key string, fallback int) int {
	raw := query.Get(key)
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func eventPayload(event *events.Event) map[string]any {
	attachments := make([]map[string]any, 0, len(event.Attachments))
	for _, a := range event.Attachments {
		attachments = append(attachments, map[string]any{
			"id":       a.ID,
			"fileName": a.FileName,
			"fileUrl":  a.FileURL,
			"fileType": a.FileType,
		})
	}
	return map[string]any{
		"id":            event.ID,
		"title":         event.Title,
		"description":   event.Description,
		"location":      event.Location,
		"startDate":     event.StartDate.Format(time.RFC3339),
		"endDate":       event.EndDate.Format(time.RFC3339),
		"status":        event.Status,
		"organizerId":   event.OrganizerID,
		"institutionId": event.InstitutionID,
		"departmentId":  event.DepartmentID,
		"createdAt":     event.CreatedAt.Format(time.RFC3339),
		"updatedAt":     event.UpdatedAt.Format(time.RFC3339),
		"attachments":   attachments,
	}
}
