package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/audit"
	"github.com/campusflow/server/internal/domain/events"
)

// AuditTrail reads back the append-only log; the postgres audit log
// provides it.
type AuditTrail interface {
	Recent(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error)
}

type AuditHandler struct {
	Trail  AuditTrail
	Events *events.Service
	Env    string
}

func NewAuditHandler(trail AuditTrail, eventService *events.Service, env string) *AuditHandler {
	return &AuditHandler{Trail: trail, Events: eventService, Env: env}
}

// EventTrail lists an event's recorded status changes, newest first.
// Admin only; routed behind RequireRoles.
func (h *AuditHandler) EventTrail(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing event id"), h.Env)
		return
	}

	event, err := h.Events.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	if event.InstitutionID != principal.InstitutionID {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", events.ErrNotFound, h.Env)
		return
	}

	limit := intQuery(r.URL.Query(), "limit", 50)
	entries, err := h.Trail.Recent(r.Context(), audit.EntityEvent, event.ID, limit)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(entries))
	for _, entry := range entries {
		item := map[string]any{
			"action":     entry.Action,
			"entityType": entry.EntityType,
			"entityId":   entry.EntityID,
			"timestamp":  entry.Timestamp.Format(time.RFC3339),
		}
		if entry.ActorID != "" {
			item["actorId"] = entry.ActorID
		}
		if entry.Changes != nil {
			item["changes"] = entry.Changes
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
