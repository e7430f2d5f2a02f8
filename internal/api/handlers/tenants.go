package handlers

import (
	"errors"
	"net/http"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/tenants"
)

// TenantsHandler exposes the public directory of institutions and
// their departments, so registration forms can offer real choices
// before anyone has a token.
type TenantsHandler struct {
	Repo tenants.Repository
	Env  string
}

func NewTenantsHandler(repo tenants.Repository, env string) *TenantsHandler {
	return &TenantsHandler{Repo: repo, Env: env}
}

func (h *TenantsHandler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.Repo.ListInstitutions(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(institutions))
	for _, institution := range institutions {
		items = append(items, map[string]any{
			"id":   institution.ID,
			"name": institution.Name,
			"code": institution.Code,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// ListDepartments returns the departments of the institution named by
// the X-Institution-Code header (or the caller's token).
func (h *TenantsHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := middleware.InstitutionFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing "+middleware.InstitutionHeader+" header"), h.Env)
		return
	}

	departments, err := h.Repo.ListDepartments(r.Context(), institutionID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(departments))
	for _, department := range departments {
		items = append(items, map[string]any{
			"id":   department.ID,
			"name": department.Name,
			"code": department.Code,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
