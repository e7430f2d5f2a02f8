package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/campusflow/server/internal/api/problem"
	"github.com/campusflow/server/internal/domain/tenants"
)

const institutionKey contextKey = "institution"

// InstitutionHeader lets unauthenticated callers (registration) name
// their institution. Authenticated requests carry it in the token.
const InstitutionHeader = "X-Institution-Code"

// ResolveTenant establishes the institution for the request. The
// token's institution wins; the header is only consulted when the
// caller is anonymous. Requests that name no institution pass through
// unscoped and handlers decide whether that is acceptable.
func ResolveTenant(repo tenants.Repository, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if principal, ok := PrincipalFromContext(r.Context()); ok && principal.InstitutionID != "" {
				ctx := context.WithValue(r.Context(), institutionKey, principal.InstitutionID)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			code := strings.TrimSpace(r.Header.Get(InstitutionHeader))
			if code == "" {
				next.ServeHTTP(w, r)
				return
			}

			institution, err := repo.GetInstitutionByCode(r.Context(), code)
			if err != nil {
				if errors.Is(err, tenants.ErrInstitutionNotFound) {
					problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Unknown institution", err, env)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
				return
			}

			ctx := context.WithValue(r.Context(), institutionKey, institution.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InstitutionFromContext returns the institution id the request is
// scoped to, if any.
func InstitutionFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(institutionKey).(string)
	return id, ok && id != ""
}
