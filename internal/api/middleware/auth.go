package middleware

import (
	"context"
	"net/http"

	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

// Principal is the authenticated caller as seen by handlers.
type Principal struct {
	UserID        string
	Role          string
	InstitutionID string
	DepartmentID  string
}

// Authenticate validates the bearer token and stores the caller's
// identity in the request context. Requests without a valid token are
// rejected with 401.
func Authenticate(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			claims, err := manager.Validate(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", err, env)
				return
			}

			principal := Principal{
				UserID:        claims.Subject,
				Role:          claims.Role,
				InstitutionID: claims.InstitutionID,
				DepartmentID:  claims.DepartmentID,
			}
			ctx := context.WithValue(r.Context(), claimsKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles rejects callers whose role is not in the allowed set.
// Must run after Authenticate.
func RequireRoles(env string, allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, env)
				return
			}
			if !auth.HasRole(principal.Role, allowed...) {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Forbidden", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext returns the authenticated caller, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(claimsKey).(Principal)
	return principal, ok
}
