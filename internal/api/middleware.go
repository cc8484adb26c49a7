package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rental-insight/listings-backend/internal/clients/identity"
	"github.com/rental-insight/listings-backend/internal/entities"
)

type contextKey int

const (
	identityKey contextKey = iota
	userKey
)

func identityFrom(ctx context.Context) identity.Identity {
	id, _ := ctx.Value(identityKey).(identity.Identity)
	return id
}

func userFrom(ctx context.Context) *entities.User {
	user, _ := ctx.Value(userKey).(*entities.User)
	return user
}

// authenticate verifies the bearer token and loads the matching local user
// when one exists. Routes that require an existing record check for it
// themselves, so first-time sync requests can pass with just an identity.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get("Authorization")
		rawToken, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing bearer token"})
			return
		}

		id, err := s.verifier.Verify(r.Context(), rawToken)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)

		user, err := s.users.GetByExternalID(ctx, id.Subject)
		if err != nil {
			writeError(w, err)
			return
		}
		if user != nil {
			ctx = context.WithValue(ctx, userKey, user)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if user == nil || !user.IsAdmin() {
			writeJSON(w, http.StatusForbidden, map[string]any{"error": "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
