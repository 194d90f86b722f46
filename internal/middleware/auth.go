package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/service"
)

// Authenticator looks up the member logged in on a session
type Authenticator interface {
	CurrentUser(ctx context.Context, sessionID string) (string, error)
}

type userKey struct{}

// RequireMember rejects requests whose session has no logged-in member (401).
// Must run after SessionMiddleware.
func RequireMember(auth Authenticator, log *logger.Logger) func(http.Handler) http.Handler {
	log = logger.OrDefault(log).WithComponent("auth")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email, err := auth.CurrentUser(r.Context(), SessionID(r.Context()))
			switch {
			case errors.Is(err, service.ErrNotLoggedIn):
				writeJSONError(w, http.StatusUnauthorized, "Authentication required")
				return
			case err != nil:
				log.Error().Err(err).Msg("Failed to check session credential")
				writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			ctx := context.WithValue(r.Context(), userKey{}, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserEmail returns the member email set by RequireMember, or ""
func UserEmail(ctx context.Context) string {
	email, _ := ctx.Value(userKey{}).(string)
	return email
}
