package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/amoradev/amora/internal/apperrors"
)

type contextKey string

const claimsKey contextKey = "auth_claims"

// Authenticated wraps a handler chain with bearer-token verification.
// Valid claims land in the request context for ClaimsFrom.
func Authenticated(tokens *TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				apperrors.WriteJSON(w, apperrors.Unauthorized("missing bearer token"))
				return
			}

			claims, err := tokens.VerifyAccessToken(raw)
			if err != nil {
				apperrors.WriteJSON(w, apperrors.Unauthorized("invalid or expired access token"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom extracts the verified access-token claims, if present.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok
}
