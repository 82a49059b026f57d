package middleware

import (
	"context"
	"net/http"

	"github.com/go-auth-web/internal/infrastructure/cookies"
	jwtinfra "github.com/go-auth-web/internal/infrastructure/jwt"
)

type contextKey string

const ClaimsKey contextKey = "claims"

// Auth returns middleware that validates the session cookie token and injects
// its claims into context. Handlers resolve the full session themselves; the
// middleware only vouches for the cookie signature.
func Auth(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := cookies.SessionToken(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "not logged in")
				return
			}
			claims, err := provider.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnonymous returns middleware that rejects requests already carrying a
// valid session cookie. Signup, login and the verify flow are anonymous-only.
func RequireAnonymous(provider *jwtinfra.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenStr, ok := cookies.SessionToken(r); ok {
				if _, err := provider.Verify(tokenStr); err == nil {
					writeJSONError(w, http.StatusForbidden, "already logged in")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext extracts session-cookie claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}
