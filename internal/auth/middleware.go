// middleware.go

// Bearer-token authentication and role middleware.
package auth

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/cagatayturkan/blog-api/internal/store"
)

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const userKey contextKey = "user"
const tokenKey contextKey = "access_token"
const sessionIDKey contextKey = "session_id"
const issuedAtKey contextKey = "issued_at"

// UserFromContext retrieves the authenticated user.
// Returns nil and false if RequireAuth hasn't run.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey).(*store.User)
	return u, ok
}

// TokenFromContext retrieves the raw bearer token of the request.
func TokenFromContext(ctx context.Context) (string, bool) {
	tok, ok := ctx.Value(tokenKey).(string)
	return tok, ok
}

// SessionIDFromContext retrieves the sid claim of the bearer token.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionIDKey).(string)
	return sid, ok
}

// IssuedAtFromContext retrieves the iat claim of the bearer token.
func IssuedAtFromContext(ctx context.Context) (time.Time, bool) {
	iat, ok := ctx.Value(issuedAtKey).(time.Time)
	return iat, ok
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, tok, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}

// RequireAuth verifies the bearer token and runs the configured revocation check.
// Injects user, token, session id and iat into context on success; returns 401 on failure.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := bearerToken(r)
		if !ok {
			logWarn(r, "require auth failed", "reason", "missing_bearer_token")
			Unauthorized(w, r, "unauthorized")
			return
		}

		p, err := h.Svc.Authenticate(r.Context(), tok)
		if err != nil {
			var ae *Error
			if errors.As(err, &ae) {
				logWarn(r, "require auth failed", "reason", ae.Message)
			} else {
				// revocation state unknown; fail closed
				logError(r, "require auth failed checking token", "error", err)
			}
			Unauthorized(w, r, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, p.User)
		ctx = context.WithValue(ctx, tokenKey, p.Token)
		ctx = context.WithValue(ctx, sessionIDKey, p.Claims.SessionID)
		if iat := p.Claims.IssuedAtTime(); iat != nil {
			ctx = context.WithValue(ctx, issuedAtKey, *iat)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows the request through only if the authenticated user holds one of roles.
// Must run after RequireAuth.
func RequireRole(roles ...store.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := UserFromContext(r.Context())
			if !ok {
				logError(r, "require role: no user in context")
				Unauthorized(w, r, "unauthorized")
				return
			}
			if !slices.Contains(roles, u.Role) {
				logWarn(r, "require role failed", "user_id", u.ID, "role", u.Role)
				Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
