package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/auth"
	"github.com/campusflow/server/internal/domain/users"
)

type AuthHandler struct {
	Users *users.Service
	JWT   *auth.JWTManager
	Env   string
}

func NewAuthHandler(service *users.Service, jwtManager *auth.JWTManager, env string) *AuthHandler {
	return &AuthHandler{Users: service, JWT: jwtManager, Env: env}
}

type registerRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	DepartmentID string `json:"departmentId" validate:"required,uuid"`
}

// Register creates a STAFF account in the institution named by the
// X-Institution-Code header. Role changes are an admin operation.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	institutionID, ok := middleware.InstitutionFromContext(r.Context())
	if !ok {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request",
			errors.New("missing "+middleware.InstitutionHeader+" header"), h.Env)
		return
	}

	var req registerRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}

	user, err := h.Users.Register(r.Context(), users.RegisterParams{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		InstitutionID: institutionID,
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

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req, h.Env) {
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	token, err := h.JWT.Generate(user.ID, string(user.Role), user.InstitutionID, user.DepartmentID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userPayload(user),
	})
}

func userPayload(user *users.User) map[string]any {
	payload := map[string]any{
		"id":            user.ID,
		"name":          user.Name,
		"email":         user.Email,
		"role":          user.Role,
		"institutionId": user.InstitutionID,
		"isActive":      user.IsActive,
		"createdAt":     user.CreatedAt.Format(time.RFC3339),
	}
	if user.DepartmentID != "" {
		payload["departmentId"] = user.DepartmentID
	}
	if user.LastLoginAt != nil {
		payload["lastLoginAt"] = user.LastLoginAt.Format(time.RFC3339)
	}
	return payload
}
