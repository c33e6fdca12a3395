package client

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/insubria-survive/survive/internal/client/migrations"
	"github.com/insubria-survive/survive/internal/client/repositories/exams"
	"github.com/insubria-survive/survive/internal/client/repositories/lessons"
	"github.com/insubria-survive/survive/internal/client/repositories/metadata"
	"github.com/insubria-survive/survive/internal/client/repositories/pavilions"
	"github.com/insubria-survive/survive/internal/client/repositories/preferences"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Repositories bundles the local store.
type Repositories struct {
	DB          *sql.DB
	Exams       exams.Repository
	Lessons     lessons.Repository
	Pavilions   pavilions.Repository
	Preferences preferences.Repository
	Metadata    metadata.Repository
}

func (r *Repositories) Close() error {
	return r.DB.Close()
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens the SQLite database at dsn, applies migrations and
// builds the repositories. Legacy local timestamps are read in loc.
func InitDatabase(ctx context.Context, dsn string, loc *time.Location) (*Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY from
	// the concurrent upsert workers.
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Repositories{
		DB:          db,
		Exams:       exams.NewSQLiteRepository(db, loc),
		Lessons:     lessons.NewSQLiteRepository(db, loc),
		Pavilions:   pavilions.NewSQLiteRepository(db),
		Preferences: preferences.NewSQLiteRepository(db),
		Metadata:    metadata.NewSQLiteRepository(db),
	}, nil
}
