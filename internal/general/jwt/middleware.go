package jwt

import (
	"net/http"

	"ride-dispatch/internal/domain/user"
)

// AuthMiddlewareFunc validates the bearer token and injects its claims into
// the request context. A nil manager disables authentication.
func AuthMiddlewareFunc(mgr *Manager, allowedRoles ...user.Role) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if mgr == nil {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			raw, err := FromRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			claims, err := mgr.Parse(raw)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			if err := RoleAllowed(claims, allowedRoles...); err != nil {
				http.Error(w, err.Error(), http.StatusForbidden)
				return
			}

			next(w, r.WithContext(InjectClaims(r.Context(), claims)))
		}
	}
}
