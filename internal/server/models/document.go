package models

import (
	"encoding/json"
	"time"
)

// StoredDocument is one row of the documents table.
type StoredDocument struct {
	Collection string
	ID         string
	Data       json.RawMessage
	UpdatedAt  time.Time
}
