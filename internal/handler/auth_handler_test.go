package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/membership"
	"github.com/evyataryagoni/geoflipper/internal/models"
	"github.com/evyataryagoni/geoflipper/internal/service"
	"github.com/evyataryagoni/geoflipper/internal/store"
)

func newTestAuthHandler(verifyErr error) (*AuthHandler, *store.MockStore, *fakeVerifier) {
	mockStore := store.NewMockStore()
	verifier := &fakeVerifier{err: verifyErr}
	auth := service.NewAuthService(mockStore, verifier, logger.NewNop())
	return NewAuthHandler(auth, nil, logger.NewNop()), mockStore, verifier
}

// TestAuthHandler_Login_Success tests a member logging in
func TestAuthHandler_Login_Success(t *testing.T) {
	handler, mockStore, _ := newTestAuthHandler(nil)

	req := newRequest(http.MethodPost, "/v1/auth/login", `{"email":"member@example.com"}`, "session-1")
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var user models.UserResponse
	if err := json.NewDecoder(rec.Body).Decode(&user); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if user.Email != "member@example.com" {
		t.Errorf("expected 'member@example.com', got '%s'", user.Email)
	}
	if mockStore.Data["session-1"] != "member@example.com" {
		t.Error("expected credential stored for the session")
	}
}

// TestAuthHandler_Login_Errors tests each failure status and message
func TestAuthHandler_Login_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		verifyErr      error
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "malformed body",
			body:           `{"email":`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request body",
		},
		{
			name:           "invalid email",
			body:           `{"email":"not-an-email"}`,
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Please enter a valid email address.",
		},
		{
			name:           "not a member",
			body:           `{"email":"member@example.com"}`,
			verifyErr:      membership.ErrNotMember,
			expectedStatus: http.StatusForbidden,
			expectedError:  "Access denied. This application requires an active membership.",
		},
		{
			name:           "monthly plan",
			body:           `{"email":"member@example.com"}`,
			verifyErr:      membership.ErrInsufficientTier,
			expectedStatus: http.StatusForbidden,
			expectedError:  "Access denied. This application requires an annual premium membership.",
		},
		{
			name:           "membership service down",
			body:           `{"email":"member@example.com"}`,
			verifyErr:      fmt.Errorf("%w: timeout", membership.ErrUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedError:  "Unable to verify membership. Please try again later.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockStore, _ := newTestAuthHandler(tt.verifyErr)

			rec := httptest.NewRecorder()
			handler.Login(rec, newRequest(http.MethodPost, "/v1/auth/login", tt.body, "session-1"))

			if rec.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rec.Code)
			}

			var errResp models.ErrorResponse
			json.NewDecoder(rec.Body).Decode(&errResp)
			if errResp.Error != tt.expectedError {
				t.Errorf("expected error '%s', got '%s'", tt.expectedError, errResp.Error)
			}
			if len(mockStore.Data) != 0 {
				t.Error("expected nothing stored on failure")
			}
		})
	}
}

// TestAuthHandler_Login_StoreError tests that store failures are hidden
func TestAuthHandler_Login_StoreError(t *testing.T) {
	handler, mockStore, _ := newTestAuthHandler(nil)
	mockStore.SaveError = errors.New("database connection failed")

	rec := httptest.NewRecorder()
	handler.Login(rec, newRequest(http.MethodPost, "/v1/auth/login", `{"email":"member@example.com"}`, "session-1"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}

	var errResp models.ErrorResponse
	json.NewDecoder(rec.Body).Decode(&errResp)
	if errResp.Error != "Internal server error" {
		t.Errorf("expected generic error message, got '%s'", errResp.Error)
	}
}

// TestAuthHandler_MeAndLogout tests the session lifecycle
func TestAuthHandler_MeAndLogout(t *testing.T) {
	handler, mockStore, _ := newTestAuthHandler(nil)
	mockStore.Data["session-1"] = "member@example.com"

	rec := httptest.NewRecorder()
	handler.Me(rec, newRequest(http.MethodGet, "/v1/auth/me", "", "session-1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Logout(rec, newRequest(http.MethodPost, "/v1/auth/logout", "", "session-1"))
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	handler.Me(rec, newRequest(http.MethodGet, "/v1/auth/me", "", "session-1"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 after logout, got %d", rec.Code)
	}
}

// TestAuthHandler_Logout_StoreError tests logout failures
func TestAuthHandler_Logout_StoreError(t *testing.T) {
	handler, mockStore, _ := newTestAuthHandler(nil)
	mockStore.ClearError = errors.New("connection lost")

	rec := httptest.NewRecorder()
	handler.Logout(rec, newRequest(http.MethodPost, "/v1/auth/logout", "", "session-1"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
}
