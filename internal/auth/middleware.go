package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/driftboard/auth-api/internal/httputil"
)

// Middleware handles authentication for protected routes.
type Middleware struct {
	tokenService TokenService
}

func NewMiddleware(tokenService TokenService) *Middleware {
	return &Middleware{tokenService: tokenService}
}

// RequireAuth validates the bearer access token and stores the resulting
// principal in the request context. Requests without a valid token are
// rejected.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			httputil.RespondErrorWithCode(w, "invalid authorization header format", httputil.CodeInvalidAuthHeader, http.StatusUnauthorized)
			return
		}
		if token == "" {
			httputil.RespondErrorWithCode(w, "missing authentication", httputil.CodeMissingAuth, http.StatusUnauthorized)
			return
		}

		claims, err := m.tokenService.VerifyToken(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				httputil.RespondErrorWithCode(w, "token has expired", httputil.CodeTokenExpired, http.StatusUnauthorized)
				return
			}
			httputil.RespondErrorWithCode(w, "invalid token", httputil.CodeInvalidToken, http.StatusUnauthorized)
			return
		}

		ctx := WithPrincipal(r.Context(), Principal{
			Username:      claims.Username,
			Authenticated: true,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalAuth attaches a principal when a valid bearer token is present
// and lets the request through anonymously otherwise. Used by endpoints
// that report on, rather than require, the session state.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if ok && token != "" {
			if claims, err := m.tokenService.VerifyToken(token); err == nil {
				ctx := WithPrincipal(r.Context(), Principal{
					Username:      claims.Username,
					Authenticated: true,
				})
				r = r.WithContext(ctx)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from the Authorization header. The
// second return value is false when the header is present but malformed.
func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", true
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
