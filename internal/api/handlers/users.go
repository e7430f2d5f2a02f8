package handlers

import (
	"errors"
	"net/http"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/users"
)

// UsersHandler is the admin surface for user management. Every route is
// behind RequireRoles(ADMIN) and scoped to the admin's institution.
type UsersHandler struct {
	Service *users.Service
	Env     string
}

func NewUsersHandler(service *users.Service, env string) *UsersHandler {
	return &UsersHandler{Service: service, Env: env}
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	members, err := h.Service.List(r.Context(), principal.InstitutionID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	items := make([]map[string]any, 0, len(members))
	for i := range members {
		items = append(items, userPayload(&members[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type createUserRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Role         string `json:"role" validate:"required,oneof=ADMIN HOD HLC_MEMBER MANAGEMENT FACULTY STAFF"`
	DepartmentID string `json:"departmentId" validate:"required,uuid"`
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	var req createUserRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}
	role, _ := users.ParseRole(req.Role)

	user, err := h.Service.Create(r.Context(), users.RegisterParams{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		Role:          role,
		InstitutionID: principal.InstitutionID,
		DepartmentID:  req.DepartmentID,
	})
	if err != nil {
		switch {
		case errors.Is(err, users.ErrEmailTaken):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Email already registered", err, h.Env)
		case errors.Is(err, users.ErrDepartmentMismatch):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusCreated, userPayload(user))
}

type updateUserRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=255"`
	Role         *string `json:"role" validate:"omitempty,oneof=ADMIN HOD HLC_MEMBER MANAGEMENT FACULTY STAFF"`
	DepartmentID *string `json:"departmentId"`
	IsActive     *bool   `json:"isActive"`
}

// Update changes role, department or active flag. Deactivated approvers
// keep any already-open approval requests; the chain simply stalls
// until an active user holds the role again.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	id := pathParam(r, "id")
	if id == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing user id"), h.Env)
		return
	}

	existing, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}
	if existing.InstitutionID != principal.InstitutionID {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", users.ErrNotFound, h.Env)
		return
	}

	var req updateUserRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}

	params := users.UpdateParams{
		Name:         req.Name,
		DepartmentID: req.DepartmentID,
		IsActive:     req.IsActive,
	}
	if req.Role != nil {
		role, _ := users.ParseRole(*req.Role)
		params.Role = &role
	}

	updated, err := h.Service.Update(r.Context(), id, params)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, userPayload(updated))
}
