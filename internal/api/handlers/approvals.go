package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/approvals"
)

type ApprovalsHandler struct {
	Engine *approvals.Engine
	Env    string
}

func NewApprovalsHandler(engine *approvals.Engine, env string) *ApprovalsHandler {
	return &ApprovalsHandler{Engine: engine, Env: env}
}

type decisionRequest struct {
	Comments string `json:"comments" validate:"max=2000"`
}

func (h *ApprovalsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, approvals.DecisionApproved)
}

func (h *ApprovalsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, approvals.DecisionRejected)
}

// decide records the caller's decision on a pending approval request.
// Only the assigned approver may decide; anybody else gets 403 before
// the engine is ever invoked.
func (h *ApprovalsHandler) decide(w http.ResponseWriter, r *http.Request, decision approvals.Decision) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing approval id"), h.Env)
		return
	}

	var req decisionRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req, h.Env) {
			return
		}
	}

	approval, err := h.Engine.GetApproval(r.Context(), id)
	if err != nil {
		if errors.Is(err, approvals.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	if approval.ApproverID != principal.UserID {
		problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden",
			errors.New("approval is assigned to another user"), h.Env)
		return
	}

	decided, err := h.Engine.ProcessApproval(r.Context(), approvals.DecisionParams{
		ApprovalID: id,
		Decision:   decision,
		Comments:   req.Comments,
		ActorID:    principal.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, approvals.ErrAlreadyDecided):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Already decided", err, h.Env)
		case errors.Is(err, approvals.ErrNotFound), errors.Is(err, approvals.ErrEventNotFound):
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, approvalPayload(decided))
}

// Mine lists the caller's open approval requests, oldest first.
func (h *ApprovalsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	pending, err := h.Engine.ListPendingForApprover(r.Context(), principal.UserID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(pending))
	for i := range pending {
		items = append(items, approvalPayload(&pending[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func approvalPayload(approval *approvals.Approval) map[string]any {
	payload := map[string]any{
		"id":         approval.ID,
		"eventId":    approval.EventID,
		"approverId": approval.ApproverID,
		"role":       approval.Role,
		"status":     approval.Status,
		"comments":   approval.Comments,
		"createdAt":  approval.CreatedAt.Format(time.RFC3339),
		"updatedAt":  approval.UpdatedAt.Format(time.RFC3339),
	}
	if approval.SignedAt != nil {
		payload["signedAt"] = approval.SignedAt.Format(time.RFC3339)
	}
	return payload
}
