package authz

import (
	"net/http"

	"github.com/stanstork/workforce-api/internal/models"
)

// RequireRole rejects requests without an identity (401) or whose role ranks below required (403).
func RequireRole(required models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromRequest(r); !ok {
				http.Error(w, "authentication required", http.StatusUnauthorized)
				return
			}
			if role, ok := RoleFromRequest(r); !ok || !models.HasAtLeast(role, required) {
				http.Error(w, "insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
