package transport

import (
	"context"
	"net/http"
	"strings"
)

type userIDContextKey struct{}

// UserIDFromContext returns the authenticated user ID stashed by
// RequireAuth, or "" if the request has none.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey{}).(string)
	return id
}

// authValidator is the subset of authsvc.Service used to verify a
// bearer access token. Declared locally so this middleware doesn't
// need to import the concrete service type.
type authValidator interface {
	ValidateAccessToken(raw string) (string, error)
}

// RequireAuth extracts a Bearer access token from the Authorization
// header, validates it against auth, and stores the resulting user ID
// in the request context. Requests without a valid token are rejected
// with 401 before reaching the wrapped handler.
func RequireAuth(auth authValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				RespondError(w, http.StatusUnauthorized, nil, "Missing or malformed Authorization header.")
				return
			}
			raw := strings.TrimSpace(header[len(prefix):])
			userID, err := auth.ValidateAccessToken(raw)
			if err != nil {
				RespondError(w, http.StatusUnauthorized, err, "Invalid or expired access token.")
				return
			}
			ctx := context.WithValue(r.Context(), userIDContextKey{}, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
