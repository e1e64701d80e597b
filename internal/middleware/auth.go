package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/taskpond/backend/internal/httpapi"
	"github.com/taskpond/backend/internal/models"
)

type contextKey string

const ctxUserKey contextKey = "user"

// TokenValidator resolves a bearer token to a user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uuid.UUID, string, error)
}

// UserLoader loads the full user record for the authenticated id.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticate validates the bearer JWT, loads the user, rejects
// suspended/banned/deleted accounts, and stores the user in request context.
func Authenticate(tokens TokenValidator, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				httpapi.Fail(w, http.StatusUnauthorized, "missing or malformed Authorization header")
				return
			}
			id, _, err := tokens.ValidateToken(r.Context(), raw)
			if err != nil {
				httpapi.Fail(w, http.StatusUnauthorized, "invalid token")
				return
			}
			u, err := users.GetByID(r.Context(), id)
			if err != nil {
				httpapi.Fail(w, http.StatusUnauthorized, "unknown user")
				return
			}
			if u.Status != models.UserStatusActive {
				httpapi.Fail(w, http.StatusForbidden, "account is "+u.Status)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
		})
	}
}

// RequireAdmin rejects requests whose context user lacks the admin flag.
// Must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := UserFromCtx(r.Context())
		if u == nil {
			httpapi.Fail(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !u.IsAdmin {
			httpapi.Fail(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromCtx returns the authenticated user or nil.
func UserFromCtx(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxUserKey).(*models.User)
	return u
}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, u)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
