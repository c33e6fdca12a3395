package preferences

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/insubria-survive/survive/internal/common"
	"github.com/insubria-survive/survive/internal/dbx"
	"github.com/insubria-survive/survive/internal/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func validate(p models.Preference) error {
	if p.ExamID == "" || p.UserID == "" {
		return fmt.Errorf("preference requires exam and user")
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: %q", common.ErrorInvalidStatus, p.Status)
	}
	return nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, p models.Preference) error {
	if err := validate(p); err != nil {
		return err
	}
	query := `INSERT INTO preferenze_esame (esame_codice, utente_username, stato)
			VALUES (?, ?, ?)
			ON CONFLICT(esame_codice, utente_username) DO UPDATE SET stato = excluded.stato`
	if _, err := r.db.ExecContext(ctx, query, p.ExamID, p.UserID, string(p.Status)); err != nil {
		return fmt.Errorf("failed to upsert preference %s/%s: %w", p.ExamID, p.UserID, err)
	}
	return nil
}

func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, p models.Preference) (bool, error) {
	if err := validate(p); err != nil {
		return false, err
	}
	query := `INSERT INTO preferenze_esame (esame_codice, utente_username, stato)
			VALUES (?, ?, ?)
			ON CONFLICT(esame_codice, utente_username) DO NOTHING`
	res, err := r.db.ExecContext(ctx, query, p.ExamID, p.UserID, string(p.Status))
	if err != nil {
		return false, fmt.Errorf("failed to insert preference %s/%s: %w", p.ExamID, p.UserID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, examID, userID string) (models.Preference, error) {
	query := `SELECT id_preferenza, esame_codice, utente_username, stato
			FROM preferenze_esame WHERE esame_codice = ? AND utente_username = ?`
	p, err := scan(r.db.QueryRowContext(ctx, query, examID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Preference{}, common.ErrorNotFound
	}
	if err != nil {
		return models.Preference{}, fmt.Errorf("failed to get preference %s/%s: %w", examID, userID, err)
	}
	return p, nil
}

func (r *SQLiteRepository) GetByStatus(ctx context.Context, status models.Status, userID string) ([]models.Preference, error) {
	query := `SELECT id_preferenza, esame_codice, utente_username, stato
			FROM preferenze_esame WHERE stato = ? AND utente_username = ?
			ORDER BY id_preferenza`
	rows, err := r.db.QueryContext(ctx, query, string(status), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select preferences: %w", err)
	}
	defer rows.Close()

	var result []models.Preference
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preference: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate preferences: %w", err)
	}
	return result, nil
}

func scan(s interface{ Scan(...any) error }) (models.Preference, error) {
	var p models.Preference
	var status string
	if err := s.Scan(&p.ID, &p.ExamID, &p.UserID, &status); err != nil {
		return p, err
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return p, err
	}
	p.Status = st
	return p, nil
}
