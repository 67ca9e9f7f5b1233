// Package middleware provides the HTTP middleware chain: request
// logging, metrics, CORS, rate limiting, and bearer token guards.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/redvault/backend/internal/errors"
	"github.com/redvault/backend/internal/httputil"
	"github.com/redvault/backend/internal/services/auth"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	roleKey   contextKey = "role"
)

// GetUserID returns the authenticated subject, or "" when the request
// did not pass RequireAuth.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// GetRole returns the authenticated role, or "" when unauthenticated.
func GetRole(ctx context.Context) string {
	role, _ := ctx.Value(roleKey).(string)
	return role
}

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// AuthMiddleware guards routes behind bearer token authentication.
type AuthMiddleware struct {
	verifier TokenVerifier
	log      zerolog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware around the verifier.
func NewAuthMiddleware(verifier TokenVerifier, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, log: log.With().Str("component", "auth_middleware").Logger()}
}

// RequireAuth rejects requests without a valid bearer token and puts
// the subject and role on the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteError(w, errors.Unauthorized("Missing Authorization header"))
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			httputil.WriteError(w, errors.Unauthorized("Invalid Authorization header format"))
			return
		}

		claims, err := m.verifier.VerifyToken(parts[1])
		if err != nil {
			m.log.Warn().Str("path", r.URL.Path).Msg("token rejected")
			httputil.WriteError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.Subject)
		ctx = context.WithValue(ctx, roleKey, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects authenticated requests whose role is not ADMIN.
// It must run after RequireAuth.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetRole(r.Context()) != "ADMIN" {
			httputil.WriteError(w, errors.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
