package handler

import (
	"errors"
	"net/http"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/membership"
	"github.com/evyataryagoni/geoflipper/internal/middleware"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/service"
	"github.com/evyataryagoni/geoflipper/internal/validation"
)

// AuthHandler handles membership login for the browser session
type AuthHandler struct {
	auth     *service.AuthService
	searches *service.SearchService // optional, search state is dropped on logout
	logger   *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth *service.AuthService, searches *service.SearchService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		searches: searches,
		logger:   logger.OrDefault(log).WithComponent("AuthHandler"),
	}
}

// Login handles POST /v1/auth/login
//
// Body: {"email": "member@example.com"}
// Responses:
//   - 200 {"email": ...} logged in
//   - 400 invalid email or body
//   - 403 not a member, or not on the annual plan
//   - 503 membership service unavailable
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email, err := h.auth.Login(r.Context(), middleware.SessionID(r.Context()), req.Email)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			respondError(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, membership.ErrNotMember), errors.Is(err, membership.ErrInsufficientTier):
			respondError(w, http.StatusForbidden, membership.UserMessage(err))
		case errors.Is(err, membership.ErrUnavailable):
			respondError(w, http.StatusServiceUnavailable, membership.UserMessage(err))
		default:
			h.logger.Error().Err(err).Msg("Login failed")
			respondError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	respondJSON(w, http.StatusOK, models.UserResponse{Email: email})
}

// Logout handles POST /v1/auth/logout (204)
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionID(r.Context())

	if err := h.auth.Logout(r.Context(), sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if h.searches != nil {
		h.searches.Forget(sessionID)
	}

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /v1/auth/me: 200 with the member email, or 401
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, err := h.auth.CurrentUser(r.Context(), middleware.SessionID(r.Context()))
	if errors.Is(err, service.ErrNotLoggedIn) {
		respondError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, models.UserResponse{Email: email})
}
