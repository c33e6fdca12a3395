package lessons

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/dbx"
	"github.com/insubria-survive/survive/internal/models"
	"github.com/insubria-survive/survive/internal/timex"
)

const selectLessons = `SELECT id_lezione, corso, data_inizio, data_fine, aula, padiglione FROM lezione`

type SQLiteRepository struct {
	db  dbx.DBTX
	loc *time.Location
}

func NewSQLiteRepository(db dbx.DBTX, loc *time.Location) *SQLiteRepository {
	return &SQLiteRepository{db: db, loc: loc}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, l models.Lesson) error {
	query := `INSERT INTO lezione (id_lezione, corso, data_inizio, data_fine, aula, padiglione)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id_lezione) DO UPDATE SET corso = excluded.corso,
				data_inizio = excluded.data_inizio,
				data_fine = excluded.data_fine,
				aula = excluded.aula,
				padiglione = excluded.padiglione`
	_, err := r.db.ExecContext(ctx, query, l.ID, l.Course,
		timex.FormatStored(l.Start), timex.FormatStored(l.End), l.Room, l.Building)
	if err != nil {
		return fmt.Errorf("failed to upsert lesson %s: %w", l.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Lesson, error) {
	rows, err := r.db.QueryContext(ctx, selectLessons)
	if err != nil {
		return nil, fmt.Errorf("failed to select lessons: %w", err)
	}
	defer rows.Close()

	var result []models.Lesson
	for rows.Next() {
		l, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lessons: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (models.Lesson, error) {
	l, err := r.scan(r.db.QueryRowContext(ctx, selectLessons+` WHERE id_lezione = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Lesson{}, common.ErrorNotFound
	}
	return l, err
}

func (r *SQLiteRepository) scan(s interface{ Scan(...any) error }) (models.Lesson, error) {
	var l models.Lesson
	var start, end string
	if err := s.Scan(&l.ID, &l.Course, &start, &end, &l.Room, &l.Building); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return l, err
		}
		return l, fmt.Errorf("failed to scan lesson: %w", err)
	}

	var err error
	if l.Start, err = timex.ParseStored(start, r.loc); err != nil {
		return l, fmt.Errorf("lesson %s: %w", l.ID, err)
	}
	if l.End, err = timex.ParseStored(end, r.loc); err != nil {
		return l, fmt.Errorf("lesson %s: %w", l.ID, err)
	}
	return l, nil
}
