package pavilions

import (
	"context"

	"github.com/insubria-survive/survive/internal/models"
)

// Repository stores campus buildings.
type Repository interface {
	// Upsert inserts the pavilion or replaces the row with the same code.
	Upsert(ctx context.Context, p models.Pavilion) error
	GetAll(ctx context.Context) ([]models.Pavilion, error)
	// GetByCode returns common.ErrorNotFound when no building has code.
	GetByCode(ctx context.Context, code string) (models.Pavilion, error)
}
