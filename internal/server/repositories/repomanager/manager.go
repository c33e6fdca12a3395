package repomanager

import (
	"context"
	"database/sql"

	"github.com/insubria-survive/survive/internal/dbx"
	"github.com/insubria-survive/survive/internal/server/repositories/documents"
	"github.com/insubria-survive/survive/internal/server/repositories/refreshtokens"
	"github.com/insubria-survive/survive/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a connection or a
// transaction, so services can compose them inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Documents(db dbx.DBTX) documents.Repository
}
