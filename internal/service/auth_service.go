package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/evyataryagoni/geoflipper/internal/logger"
	"github.com/evyataryagoni/geoflipper/internal/membership"
	"github.com/evyataryagoni/geoflipper/internal/store"
	"github.com/evyataryagoni/geoflipper/internal/validation"
)

// ErrNotLoggedIn is returned when a session has no stored credential
var ErrNotLoggedIn = errors.New("not logged in")

// AuthService handles membership login for browser sessions
// This is the service layer - it sits between handlers and the credential store
//
// Responsibilities:
//   - Validate the email format
//   - Ask the membership service whether the email may log in
//   - Persist or clear the session's credential
type AuthService struct {
	store    store.Store         // Where the session's email is kept
	verifier membership.Verifier // Membership check
	validate *validation.Validator
	logger   *logger.Logger
}

// NewAuthService creates a new auth service
//
// Parameters:
//   - s: any implementation of the Store interface
//   - verifier: membership check
//   - log: logger (optional, can be nil)
func NewAuthService(s store.Store, verifier membership.Verifier, log *logger.Logger) *AuthService {
	return &AuthService{
		store:    s,
		verifier: verifier,
		validate: validation.New(),
		logger:   logger.OrDefault(log).WithComponent("AuthService"),
	}
}

// Login verifies email and stores it for the session
//
// Flow:
//  1. Validate email format (no network call on bad input)
//  2. Verify membership
//  3. Store the credential
//
// Returns the normalized email, a *validation.Error, one of the membership
// sentinel errors, or a store error.
func (s *AuthService) Login(ctx context.Context, sessionID, email string) (string, error) {
	email, err := s.validate.Email(email)
	if err != nil {
		s.logger.Debug().Str("session_id", sessionID).Msg("Rejected login with invalid email")
		return "", err
	}

	if err := s.verifier.Verify(ctx, email); err != nil {
		s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("Membership verification failed")
		return "", err
	}

	if err := s.store.SaveEmail(ctx, sessionID, email); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to store credential")
		return "", fmt.Errorf("failed to store credential: %w", err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Member logged in")
	return email, nil
}

// Logout clears the session's credential. Logging out twice is not an error
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.ClearEmail(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to clear credential")
		return fmt.Errorf("failed to clear credential: %w", err)
	}

	s.logger.Info().Str("session_id", sessionID).Msg("Member logged out")
	return nil
}

// CurrentUser returns the email stored for the session, or ErrNotLoggedIn
func (s *AuthService) CurrentUser(ctx context.Context, sessionID string) (string, error) {
	email, err := s.store.GetEmail(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotLoggedIn
	}
	if err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read credential")
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	return email, nil
}

// Close cleans up resources
// This will close the underlying store (database connections, etc.)
func (s *AuthService) Close() error {
	return s.store.Close()
}
