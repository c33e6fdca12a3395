// Package metadata keeps small key/value bookkeeping for the local cache,
// such as the time each collection was last synchronized.
package metadata

import (
	"context"
	"time"
)

type Repository interface {
	// Get returns common.ErrorNotFound when key is unset.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string]string, error)
	Clear(ctx context.Context) error

	// LastSync returns the zero time when collection was never synchronized.
	LastSync(ctx context.Context, collection string) (time.Time, error)
	SetLastSync(ctx context.Context, collection string, at time.Time) error
}

// LastSyncKey is the metadata key holding the last sync instant of collection.
func LastSyncKey(collection string) string {
	return "last_sync:" + collection
}
