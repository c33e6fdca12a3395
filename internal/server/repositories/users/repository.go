// Package users declares the server-side repository for student accounts.
package users

import (
	"context"

	"github.com/insubria-survive/survive/internal/server/models"
)

type Repository interface {
	// Upsert creates the account or replaces the credentials and names of
	// the account with the same username. user.ID is filled in.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)
	// GetUserByLogin returns common.ErrorNotFound for an unknown username.
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
	// GetUserByID returns common.ErrorNotFound for an unknown id.
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}
