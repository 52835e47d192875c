package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"hrleave/internal/transport/http/api"
)

type PermissionStore interface {
	HasPermission(ctx context.Context, role, permission string) (bool, error)
}

func RequirePermission(permission string, store PermissionStore) func(http.Handler) http.Handler {
	return RequireAnyPermission(store, permission)
}

// RequireAnyPermission lets the request through when the caller's role holds
// at least one of permissions.
func RequireAnyPermission(store PermissionStore, permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestID)
				return
			}

			for _, permission := range permissions {
				allowed, err := store.HasPermission(r.Context(), user.RoleName, permission)
				if err != nil {
					slog.Error("permission lookup failed", "role", user.RoleName, "permission", permission, "err", err)
					api.Fail(w, http.StatusInternalServerError, "permission_error", "permission check failed", requestID)
					return
				}
				if allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Info("permission denied", "userId", user.UserID, "role", user.RoleName, "path", r.URL.Path, "requestId", requestID)
			api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
		})
	}
}
