package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/jobtrail-io/jobtrail/internal/models"
)

type contextKey string

const userContextKey contextKey = "user"

// AuthMiddleware validates the bearer access token and loads the account it
// names. Token validity is signature + expiry only; the account's active
// flag is re-checked here on every request, so deactivation takes effect
// without invalidating already-issued tokens.
func (api *Api) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing authorization header")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid authorization header")
			return
		}

		claims, err := api.tokens.ValidateToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}

		user, err := api.auth.GetUser(r.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			writeError(w, http.StatusUnauthorized, "unauthorized", "account is not active")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates admin decision endpoints on the single role boolean.
func (api *Api) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok || !user.IsAdmin {
			writeError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext retrieves the authenticated account from the context
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}
