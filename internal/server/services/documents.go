package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/insubria-survive/survive/internal/server/repositories/repomanager"
)

// DocumentService stores campus documents and builds collection snapshots.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	now         func() time.Time
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager) *DocumentService {
	return &DocumentService{db: db, repomanager: m, now: time.Now}
}

func checkCollection(collection string) error {
	if !common.IsKnownCollection(collection) {
		return fmt.Errorf("%w: %s", common.ErrorUnknownCollection, collection)
	}
	return nil
}

// Put stores doc in collection. The document needs an id and a JSON
// object as data.
func (s *DocumentService) Put(ctx context.Context, collection string, doc models.Document) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: missing id", common.ErrorInvalidDocument)
	}
	data := bytes.TrimSpace(doc.Data)
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return fmt.Errorf("%w %q: data is not a JSON object", common.ErrorInvalidDocument, doc.ID)
	}

	if err := s.repomanager.Documents(s.db).Put(ctx, collection, doc.ID, data); err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}
	return nil
}

// Delete removes one document. Missing documents yield common.ErrorNotFound.
func (s *DocumentService) Delete(ctx context.Context, collection, id string) error {
	if err := checkCollection(collection); err != nil {
		return err
	}
	return s.repomanager.Documents(s.db).Delete(ctx, collection, id)
}

// Snapshot returns the full content of collection. At is the latest
// document update, or the current time for an empty collection.
func (s *DocumentService) Snapshot(ctx context.Context, collection string) (models.Snapshot, error) {
	if err := checkCollection(collection); err != nil {
		return models.Snapshot{}, err
	}

	stored, err := s.repomanager.Documents(s.db).List(ctx, collection)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to list %s: %w", collection, err)
	}

	snap := models.Snapshot{Collection: collection, Documents: make([]models.Document, 0, len(stored))}
	for _, d := range stored {
		snap.Documents = append(snap.Documents, models.Document{ID: d.ID, Data: d.Data})
		if d.UpdatedAt.After(snap.At) {
			snap.At = d.UpdatedAt
		}
	}
	if snap.At.IsZero() {
		snap.At = s.now()
	}
	snap.At = snap.At.UTC()
	return snap, nil
}
