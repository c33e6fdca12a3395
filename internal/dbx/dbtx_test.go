package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openPreferences(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE preferenze_esame (
		esame_codice TEXT NOT NULL,
		utente_username TEXT NOT NULL,
		stato TEXT NOT NULL,
		UNIQUE (esame_codice, utente_username))`)
	require.NoError(t, err)
	return db
}

func insertPreference(ctx context.Context, tx DBTX, exam string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO preferenze_esame (esame_codice, utente_username, stato) VALUES (?, 'mario', 'IN_FORSE')`, exam)
	return err
}

func preferenceCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM preferenze_esame`).Scan(&n))
	return n
}

func TestWithTx_Commit(t *testing.T) {
	db := openPreferences(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertPreference(ctx, tx, "E1"); err != nil {
			return err
		}
		return insertPreference(ctx, tx, "E2")
	})
	require.NoError(t, err)
	require.Equal(t, 2, preferenceCount(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openPreferences(t)

	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertPreference(ctx, tx, "E1"))
		// duplicate (exam, user) violates the unique constraint
		return insertPreference(ctx, tx, "E1")
	})
	require.Error(t, err)
	require.Equal(t, 0, preferenceCount(t, db), "first insert must be rolled back")
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openPreferences(t)

	require.Panics(t, func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			require.NoError(t, insertPreference(ctx, tx, "E1"))
			panic("kaput")
		})
	})
	require.Equal(t, 0, preferenceCount(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_CommitErrorIsReturned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	err = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, e := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token = $1", "t")
		return e
	})
	require.EqualError(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}
