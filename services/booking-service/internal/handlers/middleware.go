package handlers

import (
	"net/http"
	"strings"

	"github.com/slotbook/slotbook/libs/auth"
	"github.com/slotbook/slotbook/libs/httpx"
)

// RequireAuth rejects requests without a valid bearer token and stashes the
// authenticated user id in the request context.
func RequireAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := auth.ParseToken(strings.TrimSpace(token), secret)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := httpx.ContextWithUserID(r.Context(), claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
