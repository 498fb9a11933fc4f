package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/videohub/internal/apperror"
	"github.com/sakif/videohub/internal/model"
)

// contextKey is unexported so no other package can collide with it.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the cookie that carries the session token for browsers.
const CookieName = "token"

// IdentityLoader turns a validated token subject into the caller's current
// identity. Loading per request means role changes and deletions take
// effect without waiting for the token to expire. A subject that no longer
// resolves must be reported as apperror.ErrUnauthenticated; any other error
// is treated as a server failure.
type IdentityLoader interface {
	Identify(ctx context.Context, userID string) (model.Identity, error)
}

// RequireAuth rejects requests without a valid session and stores the
// caller's identity in the request context.
//
// The token is read from "Authorization: Bearer <jwt>" first and from the
// token cookie second.
func RequireAuth(tokens *TokenService, loader IdentityLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := tokens.Validate(extractToken(r))
			if err != nil {
				unauthorized(w)
				return
			}

			identity, err := loader.Identify(r.Context(), userID)
			if errors.Is(err, apperror.ErrUnauthenticated) {
				unauthorized(w)
				return
			}
			if err != nil {
				internalError(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.UserID != ""
}

func extractToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}

	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func internalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	w.Write([]byte(`{"error":"internal_error","message":"An internal error occurred"}`))
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthenticated","message":"sign-in failed"}`))
}
