package pavilions

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE padiglione (
  codice_padiglione TEXT PRIMARY KEY,
  id_padiglione     TEXT NOT NULL DEFAULT '',
  descrizione       TEXT NOT NULL DEFAULT '',
  ora_apertura      TEXT NOT NULL DEFAULT '',
  ora_chiusura      TEXT NOT NULL DEFAULT '',
  posizione         TEXT NOT NULL DEFAULT ''
);`)
	require.NoError(t, err)
	return db
}

func TestUpsert_RoundTripWithPosition(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	p := models.Pavilion{ID: "p1", Code: "MON", Description: "Monte Generoso", OpensAt: "08:00", ClosesAt: "19:00",
		Position: &models.GeoPoint{Lat: 45.8011, Lng: 8.8473}}
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByCode(ctx, "MON")
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestUpsert_WithoutPosition(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.Pavilion{ID: "p2", Code: "MOR"}))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Nil(t, all[0].Position)
}

func TestUpsert_ReplacesByCode(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Upsert(ctx, models.Pavilion{ID: "old", Code: "MON", OpensAt: "08:00"}))
	require.NoError(t, r.Upsert(ctx, models.Pavilion{ID: "new", Code: "MON", OpensAt: "07:30"}))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "new", all[0].ID)
	assert.Equal(t, "07:30", all[0].OpensAt)
}

func TestGetByCode_NotFound(t *testing.T) {
	_, err := NewSQLiteRepository(setupDB(t)).GetByCode(context.Background(), "X")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetAll_MalformedPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"codice_padiglione", "id_padiglione", "descrizione", "ora_apertura", "ora_chiusura", "posizione"}).
		AddRow("MON", "p1", "", "", "", "north")
	mock.ExpectQuery(`SELECT codice_padiglione`).WillReturnRows(rows)

	_, err = NewSQLiteRepository(db).GetAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pavilion MON")
}
