package presentation

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nearkart/nearkart-server/internal/presentation/helpers"
)

// Session handling lives in the upstream gateway; it forwards the verified
// identity in these headers.
const (
	headerUserID = "X-User-ID"
	headerRole   = "X-User-Role"
)

type ctxKey int

const userIDKey ctxKey = iota

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.Header.Get(headerUserID))
		if err != nil {
			helpers.HttpError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, id)))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerRole) != "admin" {
			helpers.HttpError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserID returns the authenticated owner id; zero when RequireAuth did not run.
func UserID(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(userIDKey).(uuid.UUID)
	return id
}
