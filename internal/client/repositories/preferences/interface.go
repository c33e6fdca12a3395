package preferences

import (
	"context"

	"github.com/insubria-survive/survive/internal/models"
)

type Repository interface {
	// Upsert stores p, replacing the status of an existing (exam, user) row.
	Upsert(ctx context.Context, p models.Preference) error

	// InsertIfAbsent stores p only when no row exists for (exam, user) and
	// reports whether it inserted.
	InsertIfAbsent(ctx context.Context, p models.Preference) (bool, error)

	// Get returns common.ErrorNotFound when the pair has no row.
	Get(ctx context.Context, examID, userID string) (models.Preference, error)

	GetByStatus(ctx context.Context, status models.Status, userID string) ([]models.Preference, error)
}
