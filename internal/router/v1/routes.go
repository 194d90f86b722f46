package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evyataryagoni/geoflipper/internal/handler"
)

// Handlers groups the v1 endpoint handlers
type Handlers struct {
	Auth          *handler.AuthHandler
	Search        *handler.SearchHandler
	Map           *handler.MapHandler
	Opportunities *handler.OpportunityHandler
}

// Middleware is the per-route middleware the v1 API needs
type Middleware struct {
	Session       func(http.Handler) http.Handler
	RequireMember func(http.Handler) http.Handler
}

// SetupRoutes configures all v1 API routes
// This function is called by the main router to setup /v1/* endpoints
func SetupRoutes(h Handlers, mw Middleware) chi.Router {
	r := chi.NewRouter()

	// Public, no session needed
	// GET /v1/market?population=<count>
	r.Get("/market", h.Search.Market)
	r.Get("/map/config", h.Map.Config)
	r.Get("/map/tiles/{z}/{x}/{y}", h.Map.Tile)

	r.Group(func(r chi.Router) {
		r.Use(mw.Session)

		// Authentication
		r.Post("/auth/login", h.Auth.Login)
		r.Post("/auth/logout", h.Auth.Logout)
		r.Get("/auth/me", h.Auth.Me)

		// Member-only
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireMember)

			// GET /v1/search?q=<address or "lat, lng">
			r.Get("/search", h.Search.Search)
			r.Delete("/search", h.Search.Reset)
			r.Post("/search/retry", h.Search.Retry)
			r.Get("/search/state", h.Search.State)

			// GET /v1/opportunities?query=<text>
			r.Get("/opportunities", h.Opportunities.Search)
		})
	})

	return r
}
