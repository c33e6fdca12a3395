// Package services contains the application services of the Insubria
// Survive client: authentication, preference derivation and timetable
// views. Services receive the session and repositories they work on
// explicitly; none of them keeps global state.
package services

import (
	"context"
	"fmt"

	"github.com/insubria-survive/survive/internal/client/session"
	"github.com/insubria-survive/survive/internal/logging"
	"github.com/insubria-survive/survive/internal/models"
)

// Authenticator verifies credentials on behalf of the client. The gRPC
// client is the production implementation.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (models.User, session.Tokens, error)
	Logout(ctx context.Context, refreshToken string) error
	Ping(ctx context.Context) error
}

// LoginCallback receives the outcome of Login: the user on success, or an
// error wrapping ErrLoginFailed.
type LoginCallback func(user models.User, err error)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: verify credentials remotely; on success fill the session slot.
//   - Logout: clear the slot, then tell the server (best effort).
//   - Current: the user in the slot, if any.
//   - Ping: check server liveness.
type AuthService interface {
	Login(ctx context.Context, username, password string, cb LoginCallback) error
	Logout(ctx context.Context) error
	Current() (models.User, bool)
	Ping(ctx context.Context) error
}

type authService struct {
	auth    Authenticator
	session *session.Session
	logger  logging.Logger
}

func NewAuthService(a Authenticator, s *session.Session, l logging.Logger) AuthService {
	return &authService{auth: a, session: s, logger: l.With("module", "auth")}
}

// Login leaves the session untouched on failure. A successful login
// replaces a previous user, whose refresh token is revoked best-effort.
func (a *authService) Login(ctx context.Context, username, password string, cb LoginCallback) error {
	if cb == nil {
		cb = func(models.User, error) {}
	}
	if username == "" || password == "" {
		err := fmt.Errorf("%w: %w", ErrLoginFailed, ErrEmptyCredentials)
		cb(models.User{}, err)
		return err
	}

	user, tokens, err := a.auth.Login(ctx, username, password)
	if err != nil {
		a.logger.Warn(ctx, "login failed", "username", username, "error", err)
		err = fmt.Errorf("%w: %w", ErrLoginFailed, err)
		cb(models.User{}, err)
		return err
	}

	_, previous, had := a.session.Clear()
	a.session.Set(user, tokens)
	if had {
		a.revoke(ctx, previous.RefreshToken)
	}

	a.logger.Info(ctx, "logged in", "username", user.Username)
	cb(user, nil)
	return nil
}

// Logout clears the slot first, so a failing server never keeps the user
// logged in locally.
func (a *authService) Logout(ctx context.Context) error {
	user, tokens, had := a.session.Clear()
	if !had {
		return nil
	}
	a.logger.Info(ctx, "logged out", "username", user.Username)
	a.revoke(ctx, tokens.RefreshToken)
	return nil
}

func (a *authService) revoke(ctx context.Context, refreshToken string) {
	if refreshToken == "" {
		return
	}
	if err := a.auth.Logout(ctx, refreshToken); err != nil {
		a.logger.Warn(ctx, "server logout failed", "error", err)
	}
}

func (a *authService) Current() (models.User, bool) {
	return a.session.Current()
}

func (a *authService) Ping(ctx context.Context) error {
	return a.auth.Ping(ctx)
}
