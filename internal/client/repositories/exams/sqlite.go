package exams

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

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db  dbx.DBTX
	loc *time.Location
}

// NewSQLiteRepository binds the repository to db. loc is used only for
// legacy local-time rows; nil means time.Local.
func NewSQLiteRepository(db dbx.DBTX, loc *time.Location) *SQLiteRepository {
	return &SQLiteRepository{db: db, loc: loc}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, e models.Exam) error {
	query := `INSERT INTO esame (id_esame, corso, data, aula, padiglione)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id_esame) DO UPDATE SET corso = excluded.corso,
				data = excluded.data,
				aula = excluded.aula,
				padiglione = excluded.padiglione`
	_, err := r.db.ExecContext(ctx, query, e.ID, e.Course, timex.FormatStored(e.Date), e.Room, e.Building)
	if err != nil {
		return fmt.Errorf("failed to upsert exam %s: %w", e.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Exam, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id_esame, corso, data, aula, padiglione FROM esame`)
	if err != nil {
		return nil, fmt.Errorf("failed to select exams: %w", err)
	}
	defer rows.Close()

	var result []models.Exam
	for rows.Next() {
		e, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exams: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (models.Exam, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id_esame, corso, data, aula, padiglione FROM esame WHERE id_esame = ?`, id)
	e, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Exam{}, common.ErrorNotFound
	}
	if err != nil {
		return models.Exam{}, err
	}
	return e, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scan(s scanner) (models.Exam, error) {
	var e models.Exam
	var date string
	if err := s.Scan(&e.ID, &e.Course, &date, &e.Room, &e.Building); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("failed to scan exam: %w", err)
	}
	t, err := timex.ParseStored(date, r.loc)
	if err != nil {
		return e, fmt.Errorf("exam %s: %w", e.ID, err)
	}
	e.Date = t
	return e, nil
}
