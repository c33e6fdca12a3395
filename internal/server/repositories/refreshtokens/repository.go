// Package refreshtokens stores the refresh tokens issued at login.
package refreshtokens

import (
	"context"
	"time"

	"github.com/insubria-survive/survive/internal/server/models"
)

// Repository issues, looks up and revokes refresh tokens.
type Repository interface {
	// Create stores token for userID, valid until expiresAt.
	Create(ctx context.Context, userID string, token string, expiresAt time.Time) error

	// Find returns common.ErrorNotFound when the token is absent.
	Find(ctx context.Context, token string) (*models.RefreshToken, error)

	// Delete revokes a token. A missing token is not an error.
	Delete(ctx context.Context, token string) error

	// DeleteExpired drops every token that expired before now and returns
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
