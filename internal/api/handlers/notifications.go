package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/notifications"
)

type NotificationsHandler struct {
	Service *notifications.Service
	Env     string
}

func NewNotificationsHandler(service *notifications.Service, env string) *NotificationsHandler {
	return &NotificationsHandler{Service: service, Env: env}
}

func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	items, err := h.Service.ListForUser(r.Context(), principal.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := make([]map[string]any, 0, len(items))
	for _, n := range items {
		payload = append(payload, map[string]any{
			"id":        n.ID,
			"title":     n.Title,
			"message":   n.Message,
			"severity":  n.Severity,
			"isRead":    n.IsRead,
			"createdAt": n.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": payload})
}

// MarkRead flips the caller's own notification to read. Other users'
// notifications read as absent.
func (h *NotificationsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing notification id"), h.Env)
		return
	}

	if err := h.Service.MarkRead(r.Context(), id, principal.UserID); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
