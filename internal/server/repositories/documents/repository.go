// Package documents stores the campus collections (esame, lezione,
// padiglione) as JSONB rows keyed by collection and document id.
package documents

import (
	"context"
	"encoding/json"

	"github.com/insubria-survive/survive/internal/server/models"
)

type Repository interface {
	// Put inserts or replaces one document.
	Put(ctx context.Context, collection, id string, data json.RawMessage) error
	// Delete returns common.ErrorNotFound when nothing was removed.
	Delete(ctx context.Context, collection, id string) error
	// List returns the whole collection ordered by id.
	List(ctx context.Context, collection string) ([]models.StoredDocument, error)
}
