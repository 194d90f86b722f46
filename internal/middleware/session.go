package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// SessionHeader carries the session id for API clients
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the session id for browsers
	SessionCookie = "geoflipper_session"
)

type sessionKey struct{}

// SessionMiddleware attaches a session id to every request.
// The id comes from the X-Session-ID header, then the session cookie; when
// neither holds a valid UUID a new one is issued and returned in both.
func SessionMiddleware(secureCookie bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := incomingSessionID(r)
			if !ok {
				id = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    id,
					Path:     "/",
					HttpOnly: true,
					Secure:   secureCookie,
					SameSite: http.SameSiteLaxMode,
				})
			}
			w.Header().Set(SessionHeader, id)

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), id)))
		})
	}
}

func incomingSessionID(r *http.Request) (string, bool) {
	if id, err := uuid.Parse(r.Header.Get(SessionHeader)); err == nil {
		return id.String(), true
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), true
		}
	}
	return "", false
}

// WithSessionID returns a copy of ctx carrying the session id
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session id set by SessionMiddleware, or ""
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
