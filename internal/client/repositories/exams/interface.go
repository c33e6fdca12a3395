package exams

import (
	"context"

	"github.com/insubria-survive/survive/internal/models"
)

// Repository stores exams mirrored from the remote collection.
type Repository interface {
	// Upsert inserts the exam or replaces the row with the same id.
	Upsert(ctx context.Context, exam models.Exam) error

	// GetAll returns every stored exam in no particular order.
	GetAll(ctx context.Context) ([]models.Exam, error)

	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (models.Exam, error)
}
