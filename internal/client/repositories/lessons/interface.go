package lessons

import (
	"context"

	"github.com/insubria-survive/survive/internal/models"
)

// Repository stores lessons mirrored from the remote collection.
type Repository interface {
	Upsert(ctx context.Context, lesson models.Lesson) error
	GetAll(ctx context.Context) ([]models.Lesson, error)
	GetByID(ctx context.Context, id string) (models.Lesson, error)
}
